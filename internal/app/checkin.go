package app

import (
	"context"

	"github.com/Spok95/school-office/internal/access"
	"github.com/Spok95/school-office/internal/checkin"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// checkInUpgrade пропускает к websocket только тех, кто может отмечать посещаемость.
func (s *Server) checkInUpgrade(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if !p.CanMarkAttendance() {
		return forbidden()
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// checkInSocket: одна сессия отметки на соединение. Коды шлёт браузер с камерой,
// события сессии уходят обратно тем же соединением. Сессия живёт, пока открыт сокет.
func (s *Server) checkInSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		p, ok := access.FromLocals(func(k string) any { return conn.Locals(k) })
		if !ok {
			_ = conn.Close()
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ctx = ctxutil.WithUserID(ctx, p.UserID)
		ctx = ctxutil.WithSchoolID(ctx, p.SchoolID)

		var debounce checkin.Debouncer
		if s.deps.CheckInDebounce != nil {
			debounce = s.deps.CheckInDebounce(p.SchoolID)
		}
		sink := checkin.SinkFunc(func(ev checkin.Event) {
			if err := conn.WriteJSON(ev); err != nil {
				cancel()
			}
		})
		sess := checkin.NewSession(checkin.Config{
			SchoolID: p.SchoolID,
			MarkedBy: p.UserID,
			Location: s.deps.Location,
		}, s.deps.Store, checkin.NewConnScanner(conn), debounce, s.deps.CheckInNotifier, sink, s.log)

		if err := sess.Run(ctx); err != nil {
			s.log.Warn("check-in session ended with error", zap.Int64("user", p.UserID), zap.Error(err))
		}
	})
}
