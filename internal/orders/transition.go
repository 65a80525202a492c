package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

// Transition moves the order to the target status through the status
// machine. Every status change in the system goes through here; callers
// that run inside a transaction pass a repository bound to it.
//
// Reaching a status the order already holds is absorbed as a no-op and
// reported through the changed flag. Disallowed moves surface as state
// conflicts.
func Transition(ctx context.Context, repo *Repository, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, bool, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	if order.Status == target {
		return order, false, nil
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, target))
	}

	rows, err := repo.UpdateStatusGuarded(ctx, orderID, order.Status, target)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if rows == 0 {
		// Lost the race to a concurrent transition; re-read and decide.
		current, reloadErr := repo.FindByID(ctx, orderID)
		if reloadErr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, reloadErr, "reload order")
		}
		if current.Status == target {
			return current, false, nil
		}
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", current.Status, target))
	}

	order.Status = target
	return order, true, nil
}
