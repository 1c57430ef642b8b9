package export

import (
	"fmt"
	"sync"

	"github.com/Spok95/school-office/internal/models"
)

// InFlight: защита от повторного запуска тяжёлого экспорта того же документа.
// Ключ: (пользователь, вид, цель); пока экспорт идёт, второй получает отказ.
type InFlight struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{m: make(map[string]struct{})}
}

// Acquire помечает ключ как "в обработке". false: такой экспорт уже идёт.
// Освобождать через возвращённую функцию.
func (g *InFlight) Acquire(userID int64, kind models.DocumentKind, target string) (func(), bool) {
	key := fmt.Sprintf("%d|%s|%s", userID, kind, target)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.m[key]; ok {
		return nil, false
	}
	g.m[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.m, key)
			g.mu.Unlock()
		})
	}, true
}
