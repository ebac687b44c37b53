package accounts

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/platinummonkey/accountgate/pkg/access"
	"github.com/platinummonkey/accountgate/pkg/audit"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

// Service implements account administration. Every method takes the requester's
// session explicitly and passes it through the access gate before touching the store.
type Service struct {
	accounts storage.AccountStore
	sessions storage.SessionStore
	gate     *access.Gate
	validate *validator.Validate
	auditor  audit.Logger
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewService creates an administration service. auditor and metrics may be nil.
func NewService(accounts storage.AccountStore, sessions storage.SessionStore, gate *access.Gate,
	auditor audit.Logger, metrics *observability.Metrics, logger *observability.Logger) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		gate:     gate,
		validate: validator.New(),
		auditor:  auditor,
		metrics:  metrics,
		logger:   logger,
	}
}

// Create adds an account. Role and status default to basicuser and active.
func (s *Service) Create(ctx context.Context, requester *auth.Session, in CreateInput) (*auth.Account, error) {
	const op = "accounts.Create"

	acct := &auth.Account{
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.TrimSpace(in.Email),
		Role:   auth.NormalizeRole(in.Role),
		Status: auth.NormalizeStatus(in.Status),
	}

	created, err := s.create(ctx, op, requester, acct)
	s.finish(ctx, "create", audit.EventTypeAdminUserCreate, requester, acct.Email, created, nil, err)
	return created, err
}

func (s *Service) create(ctx context.Context, op string, requester *auth.Session, acct *auth.Account) (*auth.Account, error) {
	if _, err := s.gate.Admin(ctx, requester); err != nil {
		return nil, err
	}
	if err := check(s.validate, op, acct); err != nil {
		return nil, err
	}

	created, err := s.accounts.Create(ctx, acct)
	if err != nil {
		return nil, storeError(op, MsgCreateFailed, err)
	}
	return created, nil
}

// Update applies an administrative update of any field
func (s *Service) Update(ctx context.Context, requester *auth.Session, id int64, in UpdateInput) (*auth.Account, error) {
	const op = "accounts.Update"

	var (
		updated *auth.Account
		changes *audit.ChangeDetails
		err     error
	)
	if _, err = s.gate.Admin(ctx, requester); err == nil {
		updated, changes, err = s.update(ctx, op, id, in.apply)
	}

	s.finish(ctx, "update", audit.EventTypeAdminUserUpdate, requester, emailOf(updated), updated, changes, err, id)
	return updated, err
}

// SetStatus activates or deactivates an account. A nil status means deactivated;
// any given value must name a known status.
func (s *Service) SetStatus(ctx context.Context, requester *auth.Session, id int64, status *string) (*auth.Account, error) {
	const op = "accounts.SetStatus"

	next := auth.StatusDeactivated
	if status != nil {
		next = auth.Status(fold(*status))
	}

	var (
		updated *auth.Account
		changes *audit.ChangeDetails
		err     error
	)
	if _, err = s.gate.Admin(ctx, requester); err == nil {
		if !next.Valid() {
			err = auth.E(auth.KindValidation, op, MsgInvalidStatus, nil)
		} else {
			updated, changes, err = s.update(ctx, op, id, func(a *auth.Account) { a.Status = next })
		}
	}

	event := audit.EventTypeAdminUserDeactivate
	if next == auth.StatusActive {
		event = audit.EventTypeAdminUserActivate
	}
	s.finish(ctx, "set_status", event, requester, emailOf(updated), updated, changes, err, id)
	return updated, err
}

// UpdateProfile lets the session owner change their own name and email. The
// requester's session snapshot is refreshed with the stored values.
func (s *Service) UpdateProfile(ctx context.Context, requester *auth.Session, in ProfileInput) (*auth.Account, error) {
	const op = "accounts.UpdateProfile"

	var (
		updated *auth.Account
		changes *audit.ChangeDetails
		err     error
	)
	if _, err = s.gate.Owner(ctx, requester); err == nil {
		updated, changes, err = s.update(ctx, op, requester.AccountID, in.apply)
	}

	if err == nil {
		requester.Refresh(updated)
		if saveErr := s.sessions.Save(ctx, requester); saveErr != nil {
			s.logger.WithError(saveErr).WithField("account_id", updated.ID).Warn("failed to refresh session snapshot")
		}
	}

	var target int64
	if requester != nil {
		target = requester.AccountID
	}
	s.finish(ctx, "update_profile", audit.EventTypeProfileUpdate, requester, emailOf(updated), updated, changes, err, target)
	return updated, err
}

// List returns every account in store order
func (s *Service) List(ctx context.Context, requester *auth.Session) ([]*auth.Account, error) {
	if _, err := s.gate.Admin(ctx, requester); err != nil {
		s.metrics.RecordAccountOperation("list", err)
		return nil, err
	}

	accounts, err := s.accounts.List(ctx)
	s.metrics.RecordAccountOperation("list", err)
	if err != nil {
		return nil, storeError("accounts.List", "", err)
	}
	return accounts, nil
}

// update runs mutate and validation inside the store's atomic update
func (s *Service) update(ctx context.Context, op string, id int64, mutate func(*auth.Account)) (*auth.Account, *audit.ChangeDetails, error) {
	changes := &audit.ChangeDetails{}

	updated, err := s.accounts.Update(ctx, id, func(a *auth.Account) error {
		changes.Before = snapshot(a)
		mutate(a)
		return check(s.validate, op, a)
	})
	if err != nil {
		return nil, nil, storeError(op, MsgUpdateFailed, err)
	}
	changes.After = snapshot(updated)
	return updated, changes, nil
}

// finish records metrics, audit and logs for a mutating operation
func (s *Service) finish(ctx context.Context, operation string, eventType audit.EventType, requester *auth.Session,
	targetEmail string, target *auth.Account, changes *audit.ChangeDetails, err error, targetID ...int64) {
	s.metrics.RecordAccountOperation(operation, err)

	kind := auth.KindOf(err)
	event := audit.Event{
		Type:        eventType,
		Status:      audit.StatusFor(err, kind == auth.KindForbidden || kind == auth.KindUnauthenticated || kind == auth.KindSuspended),
		TargetEmail: targetEmail,
		Changes:     changes,
	}
	if requester != nil {
		event.ActorID = requester.AccountID
		event.ActorEmail = requester.Email
	}
	if target != nil {
		event.TargetID = target.ID
	} else if len(targetID) > 0 {
		event.TargetID = targetID[0]
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	_ = s.auditor.Record(ctx, event)

	if kind == auth.KindStore {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"operation": operation,
			"target_id": event.TargetID,
		}).Error("account operation failed")
	}
}

// storeError keeps taxonomy errors and turns anything else into a rolled back store failure
func storeError(op, msg string, err error) error {
	if auth.KindOf(err) != auth.KindStore {
		return err
	}
	return auth.E(auth.KindStore, op, msg, err)
}

func snapshot(a *auth.Account) map[string]interface{} {
	return map[string]interface{}{
		"name":   a.Name,
		"email":  a.Email,
		"role":   string(a.Role),
		"status": string(a.Status),
	}
}

func emailOf(a *auth.Account) string {
	if a == nil {
		return ""
	}
	return a.Email
}
