// Package tg posts the daily attendance summary to a Telegram chat.
package tg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Store interface {
	ListSchools(ctx context.Context) ([]models.School, error)
	DayCounts(ctx context.Context, schoolID int64, day time.Time) (db.DayCounts, error)
}

type Summary struct {
	bot    Bot
	store  Store
	chatID int64
	loc    *time.Location
	now    func() time.Time
	log    *zap.Logger
}

func NewSummary(bot Bot, store Store, chatID int64, loc *time.Location, log *zap.Logger) *Summary {
	if loc == nil {
		loc = time.UTC
	}
	return &Summary{bot: bot, store: store, chatID: chatID, loc: loc, now: time.Now, log: logging.OrNop(log)}
}

// Post: одно сообщение со сводкой по всем школам за сегодня.
func (s *Summary) Post(ctx context.Context) error {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return err
	}
	if len(schools) == 0 {
		return nil
	}
	day := s.now().In(s.loc)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Attendance %s\n", day.Format("02/01/2006"))
	for _, sc := range schools {
		c, err := s.store.DayCounts(ctx, sc.ID, day)
		if err != nil {
			return err
		}
		b.WriteString("\n")
		b.WriteString(FormatCounts(sc.Name, c))
	}

	if _, err := Send(s.bot, tgbotapi.NewMessage(s.chatID, b.String())); err != nil {
		return err
	}
	s.log.Info("attendance summary posted", zap.Int("schools", len(schools)))
	return nil
}

func FormatCounts(school string, c db.DayCounts) string {
	rate := 0.0
	if c.Active > 0 {
		rate = float64(c.Present+c.Late) * 100 / float64(c.Active)
	}
	return fmt.Sprintf("%s: %d/%d present (%.1f%%), late %d, absent %d\n",
		school, c.Present+c.Late, c.Active, rate, c.Late, c.Absent)
}
