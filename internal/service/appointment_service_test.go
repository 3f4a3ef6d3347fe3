package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/authctx"
	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newAppointmentFixture(t *testing.T) (*memRepo[model.Appointment], *memRepo[model.Customer], *stubNotifications, AppointmentService) {
	t.Helper()
	appointmentRepo := newAppointmentRepo()
	customerRepo := newCustomerRepo()
	notifications := &stubNotifications{}
	svc := NewAppointmentService(appointmentRepo, customerRepo, &stubActivity{}, notifications)
	return appointmentRepo, customerRepo, notifications, svc
}

func TestAppointmentCreate(t *testing.T) {
	_, customerRepo, _, svc := newAppointmentFixture(t)
	customer := &model.Customer{ID: uuid.New(), Name: "Acme"}
	customerRepo.put(customer)

	res, err := svc.Create(context.Background(), CreateAppointmentRequest{
		CustomerID:      customer.ID,
		Title:           "Consultation",
		AppointmentDate: time.Now().Add(48 * time.Hour),
		Fee:             decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.Status != model.AppointmentStatusScheduled {
		t.Errorf("Status = %s, want %s", res.Status, model.AppointmentStatusScheduled)
	}
	if res.Duration != 30 {
		t.Errorf("Duration = %d, want default 30", res.Duration)
	}
}

func TestAppointmentCreateUnknownCustomer(t *testing.T) {
	_, _, _, svc := newAppointmentFixture(t)

	_, err := svc.Create(context.Background(), CreateAppointmentRequest{
		CustomerID:      uuid.New(),
		Title:           "Orphan",
		AppointmentDate: time.Now(),
	})
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error for missing customer, got %v", err)
	}
}

func TestAppointmentCreateNegativeFee(t *testing.T) {
	_, customerRepo, _, svc := newAppointmentFixture(t)
	customer := &model.Customer{ID: uuid.New(), Name: "Acme"}
	customerRepo.put(customer)

	_, err := svc.Create(context.Background(), CreateAppointmentRequest{
		CustomerID:      customer.ID,
		Title:           "Refund?",
		AppointmentDate: time.Now(),
		Fee:             decimal.NewFromInt(-5),
	})
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error for negative fee, got %v", err)
	}
}

func TestAppointmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{model.AppointmentStatusScheduled, model.AppointmentStatusConfirmed, true},
		{model.AppointmentStatusScheduled, model.AppointmentStatusCancelled, true},
		{model.AppointmentStatusScheduled, model.AppointmentStatusCompleted, false},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, true},
		{model.AppointmentStatusConfirmed, model.AppointmentStatusNoShow, true},
		{model.AppointmentStatusCompleted, model.AppointmentStatusScheduled, false},
		{model.AppointmentStatusCancelled, model.AppointmentStatusConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			repo, _, _, svc := newAppointmentFixture(t)
			appt := &model.Appointment{ID: uuid.New(), Title: "x", Status: tc.from}
			repo.put(appt)

			_, err := svc.UpdateStatus(context.Background(), appt.ID, tc.to)
			if tc.allowed && err != nil {
				t.Errorf("transition should succeed, got %v", err)
			}
			if !tc.allowed {
				if !apperror.IsCode(err, apperror.CodeValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				stored, _ := repo.FindByID(context.Background(), appt.ID)
				if stored.Status != tc.from {
					t.Errorf("status changed on rejected transition: %s", stored.Status)
				}
			}
		})
	}
}

func TestAppointmentStatusUnknown(t *testing.T) {
	repo, _, _, svc := newAppointmentFixture(t)
	appt := &model.Appointment{ID: uuid.New(), Status: model.AppointmentStatusScheduled}
	repo.put(appt)

	_, err := svc.UpdateStatus(context.Background(), appt.ID, "TELEPORTED")
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}

func TestAppointmentStatusNotFound(t *testing.T) {
	_, _, _, svc := newAppointmentFixture(t)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), model.AppointmentStatusConfirmed)
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestAppointmentStatusNotifiesCreator(t *testing.T) {
	repo, _, notifications, svc := newAppointmentFixture(t)

	creator := uuid.New()
	actor := uuid.New()
	appt := &model.Appointment{ID: uuid.New(), Title: "Review", Status: model.AppointmentStatusScheduled}
	appt.SetCreatedBy(creator)
	repo.put(appt)

	ctx := authctx.WithUserID(context.Background(), actor)
	if _, err := svc.UpdateStatus(ctx, appt.ID, model.AppointmentStatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if len(notifications.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifications.sent))
	}
	if notifications.sent[0].UserID != creator {
		t.Errorf("notified %s, want creator %s", notifications.sent[0].UserID, creator)
	}
	if notifications.sent[0].Type != model.NotificationTypeAppointment {
		t.Errorf("type = %s", notifications.sent[0].Type)
	}
}

func TestAppointmentStatusSelfChangeNoNotification(t *testing.T) {
	repo, _, notifications, svc := newAppointmentFixture(t)

	creator := uuid.New()
	appt := &model.Appointment{ID: uuid.New(), Title: "Own", Status: model.AppointmentStatusScheduled}
	appt.SetCreatedBy(creator)
	repo.put(appt)

	ctx := authctx.WithUserID(context.Background(), creator)
	if _, err := svc.UpdateStatus(ctx, appt.ID, model.AppointmentStatusCancelled); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if len(notifications.sent) != 0 {
		t.Errorf("no notification expected for self-change, got %d", len(notifications.sent))
	}
}
