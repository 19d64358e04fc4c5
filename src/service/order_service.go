package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"trade-orders/src/helpers"
	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"
	"trade-orders/src/notification"

	"github.com/go-playground/validator/v10"
)

var _ interfaces.IOrderService = (*OrderService)(nil)

const (
	DefaultListSkip  = 0
	DefaultListLimit = 100
)

// -----------------------------------------------------------------------------
// OrderService
// -----------------------------------------------------------------------------

type OrderService struct {
	store     interfaces.IOrderStore
	notifier  interfaces.INotifier
	publisher interfaces.IEventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewOrderService wires the service. publisher may be nil when order events
// are disabled.
func NewOrderService(
	store interfaces.IOrderStore,
	notifier interfaces.INotifier,
	publisher interfaces.IEventPublisher,
	log *logger.Logger,
) *OrderService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &OrderService{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		validate:  v,
		logger:    log,
	}
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// CreateOrder validates and stores the order, then broadcasts the creation
// notice built from the submitted values. Nothing is broadcast when the store
// fails.
func (s *OrderService) CreateOrder(ctx context.Context, input models.MOrderInput) (*models.MOrder, error) {
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	order, err := s.store.Insert(ctx, input)
	if err != nil {
		s.logger.Error("Failed to insert order for %s: %v", input.Symbol, err)
		return nil, helpers.NewStoreError("insert order", err)
	}

	s.notifier.Broadcast(notification.OrderCreatedMessage(input))
	s.publish(ctx, models.EventOrderCreated, order)

	s.logger.Info("Order %d created (%s %s %d @ %v)", order.ID, order.OrderType, order.Symbol, order.Quantity, order.Price)
	return order, nil
}

// -----------------------------------------------------------------------------

// GetOrder returns the order or a NotFoundError.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.MOrder, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load order %d: %v", id, err)
		return nil, helpers.NewStoreError("get order", err)
	}
	if order == nil {
		return nil, helpers.NewNotFoundError("Order not found")
	}
	return order, nil
}

// -----------------------------------------------------------------------------

// ListOrders returns up to limit orders after skip, in id order.
func (s *OrderService) ListOrders(ctx context.Context, skip, limit int) ([]models.MOrder, error) {
	var issues []helpers.FieldIssue
	if skip < 0 {
		issues = append(issues, helpers.FieldIssue{Field: "skip", Rule: "gte", Message: "ensure this value is greater than or equal to 0"})
	}
	if limit < 0 {
		issues = append(issues, helpers.FieldIssue{Field: "limit", Rule: "gte", Message: "ensure this value is greater than or equal to 0"})
	}
	if len(issues) > 0 {
		return nil, helpers.NewValidationError("invalid pagination", issues...)
	}

	orders, err := s.store.List(ctx, skip, limit)
	if err != nil {
		s.logger.Error("Failed to list orders (skip=%d, limit=%d): %v", skip, limit, err)
		return nil, helpers.NewStoreError("list orders", err)
	}
	if orders == nil {
		orders = []models.MOrder{}
	}
	return orders, nil
}

// -----------------------------------------------------------------------------

// UpdateOrder overwrites every mutable field of an existing order.
// A missing id yields (nil, nil), not an error; callers must check the result.
// Updates are not broadcast.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error) {
	if err := s.Validate(input); err != nil {
		return nil, err
	}

	order, err := s.store.UpdateByID(ctx, id, input)
	if err != nil {
		s.logger.Error("Failed to update order %d: %v", id, err)
		return nil, helpers.NewStoreError("update order", err)
	}
	if order == nil {
		s.logger.Debug("Update skipped, order %d does not exist", id)
		return nil, nil
	}

	s.publish(ctx, models.EventOrderUpdated, order)
	return order, nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate checks the input constraints and returns a *helpers.ValidationError
// listing every rejected field.
func (s *OrderService) Validate(input models.MOrderInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return helpers.NewValidationError(err.Error())
	}

	issues := make([]helpers.FieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, helpers.FieldIssue{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return helpers.NewValidationError("invalid order", issues...)
}

// -----------------------------------------------------------------------------

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value is not a valid enumeration member; permitted: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.MOrder) {
	if s.publisher == nil {
		return
	}

	event := models.MOrderEvent{
		Type:       eventType,
		Order:      *order,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warning("Failed to publish %s for order %d: %v", eventType, order.ID, err)
	}
}
