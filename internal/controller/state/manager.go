package state

import (
	"sync"
	"time"
)

// Manager хранит текущий выбор каждого чата. Каждый новый выбор получает
// возрастающий ticket: результат вычисления, запущенного со старым ticket,
// должен быть отброшен
type Manager struct {
	mu         sync.RWMutex
	selections map[int64]Selection // chatID -> Selection
	seq        uint64
}

func NewManager() *Manager {
	return &Manager{
		selections: make(map[int64]Selection),
	}
}

// Select запоминает выбор и возвращает его ticket
func (sm *Manager) Select(chatID int64, doctorID string, date time.Time) uint64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.seq++
	sm.selections[chatID] = Selection{
		DoctorID: doctorID,
		Date:     date,
		Ticket:   sm.seq,
	}
	return sm.seq
}

// IsCurrent true, если ticket всё ещё соответствует последнему выбору чата
func (sm *Manager) IsCurrent(chatID int64, ticket uint64) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sel, ok := sm.selections[chatID]
	return ok && sel.Ticket == ticket
}

func (sm *Manager) Current(chatID int64) (Selection, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sel, ok := sm.selections[chatID]
	return sel, ok
}

// Clear сбрасывает выбор. Возвращает false, если сбрасывать нечего
func (sm *Manager) Clear(chatID int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.selections[chatID]; !ok {
		return false
	}
	delete(sm.selections, chatID)
	return true
}
