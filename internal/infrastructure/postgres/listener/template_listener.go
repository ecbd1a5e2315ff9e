package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"trackify/internal/domain/recurring"
)

const (
	channelName       = "recurring_template_changed"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// TemplateChange is the payload NOTIFY sends when a template is created or its
// schedule or status is edited.
type TemplateChange struct {
	TemplateID  string `json:"template_id"`
	UserID      int64  `json:"user_id"`
	NextDueDate string `json:"next_due_date"`
	IsActive    bool   `json:"is_active"`
}

// ParseTemplateChange decodes a NOTIFY payload.
func ParseTemplateChange(payload string) (*TemplateChange, error) {
	var change TemplateChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return nil, fmt.Errorf("failed to parse notification payload: %w", err)
	}
	if change.UserID <= 0 || change.TemplateID == "" {
		return nil, fmt.Errorf("incomplete notification payload: %q", payload)
	}
	return &change, nil
}

// DueBy reports whether the changed template already needs materializing on today.
func (c *TemplateChange) DueBy(today time.Time) bool {
	if !c.IsActive {
		return false
	}
	next, err := recurring.ParseDate(c.NextDueDate)
	if err != nil {
		return false
	}
	return !next.After(recurring.ToDate(today))
}

// TriggerFunc asks for an immediate processing run for one user.
type TriggerFunc func(ctx context.Context, userID int64)

// TemplateListener watches template changes and triggers processing for
// templates that are already due, so a backdated template does not wait for
// the next scheduled run. pq.Listener reconnects on its own; a nil
// notification marks a reconnect after which earlier events may be lost.
type TemplateListener struct {
	connStr string
	trigger TriggerFunc
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewTemplateListener(connStr string, trigger TriggerFunc) *TemplateListener {
	return &TemplateListener{
		connStr: connStr,
		trigger: trigger,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start subscribes in the background until ctx ends or Stop is called.
func (l *TemplateListener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		l.run(ctx)
	}()
}

// Stop cancels the subscription and waits for it to close.
func (l *TemplateListener) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	log.Println("Template listener stopped")
}

func logListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		log.Printf("Template listener: connected to %s", channelName)
	case pq.ListenerEventDisconnected:
		log.Printf("Template listener: disconnected: %v", err)
	case pq.ListenerEventReconnected:
		log.Printf("Template listener: reconnected to %s", channelName)
	case pq.ListenerEventConnectionAttemptFailed:
		log.Printf("Template listener: connection attempt failed: %v", err)
	}
}

func (l *TemplateListener) run(ctx context.Context) {
	pl := pq.NewListener(l.connStr, time.Second, reconnectInterval, logListenerEvent)
	defer pl.Close()

	// Listen only fails on a bad channel name or a closed listener; a
	// missing database is retried by pq in the background.
	if err := pl.Listen(channelName); err != nil {
		log.Printf("Template listener: cannot subscribe to %s: %v", channelName, err)
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-pl.Notify:
			if n == nil {
				log.Println("Template listener: connection was reset, changes made meanwhile wait for the next scheduled run")
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ping.C:
			go func() {
				if err := pl.Ping(); err != nil {
					log.Printf("Template listener: ping failed: %v", err)
				}
			}()
		}
	}
}

func (l *TemplateListener) handle(ctx context.Context, payload string) {
	change, err := ParseTemplateChange(payload)
	if err != nil {
		log.Printf("Template listener: %v", err)
		return
	}
	if !change.DueBy(l.now()) {
		return
	}

	log.Printf("Template listener: template %s for user %d is due", change.TemplateID, change.UserID)
	l.trigger(ctx, change.UserID)
}
