package memory

import (
	"context"
	"sort"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Save(ctx context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, 0, limit), nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return entity.ErrNotFound
	}
	n.IsRead = true
	r.s.notifications[id] = n
	return nil
}
