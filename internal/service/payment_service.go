package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pawhaven/internal/cache"
	apperrors "pawhaven/internal/errors"
	"pawhaven/internal/gateway"
	"pawhaven/internal/model"
	"pawhaven/internal/repository"
)

// WalletGateway is the port to the wallet gateway client.
type WalletGateway interface {
	Initiate(ctx context.Context, req gateway.KhaltiInitiateRequest) (*gateway.KhaltiInitiateResponse, error)
	Lookup(ctx context.Context, pidx string) (*gateway.KhaltiLookupResponse, error)
}

// BankRedirectGateway is the port to the bank-redirect gateway client.
type BankRedirectGateway interface {
	FormPayload(amount decimal.Decimal, transactionRef, successURL, failureURL string) *gateway.FormPayload
	DecodeCallback(data string) (*gateway.DecodedOutcome, error)
	VerifyLegacy(ctx context.Context, amount, refID, transactionRef string) error
}

// Callback carries the raw parameters of an inbound gateway callback.
type Callback struct {
	Method         model.PaymentMethod
	TransactionRef string
	// UserID is set when the callback arrived through an authenticated
	// browser session; uuid.Nil otherwise.
	UserID uuid.UUID
	// New-protocol bank-redirect payload (base64 JSON).
	Data string
	// Legacy bank-redirect parameters.
	LegacyAmount string
	LegacyRefID  string
	// Wallet payment id echoed back on the return redirect.
	Pidx string
}

// Outcome is the reconciliation result the route layer renders. Errors in
// the payment flow are folded into the payment's status and error message;
// they never cross this boundary as faults.
type Outcome struct {
	Status       model.PaymentStatus `json:"status"`
	Payment      *model.Payment      `json:"payment"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// GatewayRedirect tells the caller how to hand the user over to a gateway:
// a hosted page URL for the wallet, a signed form for the bank redirect.
type GatewayRedirect struct {
	Method      model.PaymentMethod `json:"method"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	FormAction  string              `json:"form_action,omitempty"`
	FormFields  map[string]string   `json:"form_fields,omitempty"`
}

// PaymentService orchestrates the adoption payment flow: create a pending
// payment, hand off to a gateway, reconcile the callback, and move the
// payment and its pet to their final states exactly once.
type PaymentService interface {
	Initiate(ctx context.Context, petID, userID uuid.UUID) (*model.Payment, error)
	ChooseGateway(ctx context.Context, paymentID uuid.UUID, method model.PaymentMethod) (*GatewayRedirect, error)
	RegenerateReference(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error)
	Reconcile(ctx context.Context, cb Callback) (*Outcome, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByReference(ctx context.Context, ref string) (*model.Payment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (*model.Payment, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	petRepo     repository.PetRepository
	userRepo    repository.UserRepository
	eventRepo   repository.PaymentEventRepository
	transactor  repository.Transactor
	wallet      WalletGateway
	bank        BankRedirectGateway
	cache       *cache.Client
	baseURL     string
	// Mutex map for per-pet serialization of success side effects
	petMutexes sync.Map
	// Channel for async audit logging
	eventChannel chan model.PaymentEvent
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	petRepo repository.PetRepository,
	userRepo repository.UserRepository,
	eventRepo repository.PaymentEventRepository,
	transactor repository.Transactor,
	wallet WalletGateway,
	bank BankRedirectGateway,
	cache *cache.Client,
	baseURL string,
) PaymentService {
	service := &paymentService{
		paymentRepo:  paymentRepo,
		petRepo:      petRepo,
		userRepo:     userRepo,
		eventRepo:    eventRepo,
		transactor:   transactor,
		wallet:       wallet,
		bank:         bank,
		cache:        cache,
		baseURL:      baseURL,
		eventChannel: make(chan model.PaymentEvent, 100),
	}

	// Start async audit worker
	go service.eventWorker(context.Background())

	return service
}

// petMutex returns a mutex for a specific pet ID.
func (s *paymentService) petMutex(petID uuid.UUID) *sync.Mutex {
	value, _ := s.petMutexes.LoadOrStore(petID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// eventWorker writes audit events asynchronously in small batches.
func (s *paymentService) eventWorker(ctx context.Context) {
	batch := make([]model.PaymentEvent, 0, 10)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-s.eventChannel:
			if !ok {
				if len(batch) > 0 {
					_ = s.eventRepo.CreateBatch(ctx, batch)
				}
				return
			}
			batch = append(batch, event)
			if len(batch) >= 10 {
				_ = s.eventRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				_ = s.eventRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			return
		}
	}
}

// recordEvent logs a status transition asynchronously.
func (s *paymentService) recordEvent(ctx context.Context, paymentID uuid.UUID, status model.PaymentStatus, message string) {
	event := model.PaymentEvent{
		PaymentID: paymentID,
		Status:    status,
		Message:   message,
	}

	select {
	case s.eventChannel <- event:
	default:
		// Channel full, log synchronously as fallback
		_ = s.eventRepo.Create(ctx, &event)
	}
}

// Initiate creates a pending payment for an available pet. The pet stays
// AVAILABLE during the attempt; several users may race to the gateway and
// only the first completed callback wins the adoption.
func (s *paymentService) Initiate(ctx context.Context, petID, userID uuid.UUID) (*model.Payment, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.EmailVerified {
		return nil, apperrors.ErrEmailNotVerified
	}

	pet, err := s.petRepo.FindByID(ctx, petID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPetNotFound
		}
		return nil, fmt.Errorf("find pet: %w", err)
	}
	if !pet.Available() {
		return nil, apperrors.ErrPetUnavailable
	}

	payment := &model.Payment{
		UserID:         userID,
		PetID:          petID,
		Amount:         pet.Price,
		Method:         model.MethodPending,
		Status:         model.PaymentStatusPending,
		TransactionRef: model.NewTransactionRef(),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.recordEvent(ctx, payment.ID, model.PaymentStatusPending, "")
	return payment, nil
}

// ChooseGateway routes a pending payment through the chosen gateway,
// advancing it to INITIATED on success and FAILED on gateway error.
func (s *paymentService) ChooseGateway(ctx context.Context, paymentID uuid.UUID, method model.PaymentMethod) (*GatewayRedirect, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.ErrInvalidTransition
	}

	switch method {
	case model.MethodKhalti:
		return s.initiateWallet(ctx, payment)
	case model.MethodEsewa:
		return s.initiateBankRedirect(ctx, payment)
	default:
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}
}

func (s *paymentService) initiateWallet(ctx context.Context, payment *model.Payment) (*GatewayRedirect, error) {
	user, err := s.userRepo.FindByID(ctx, payment.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	pet, err := s.petRepo.FindByID(ctx, payment.PetID)
	if err != nil {
		return nil, fmt.Errorf("find pet: %w", err)
	}

	phone := user.Phone
	if phone == "" {
		phone = "9800000000"
	}

	req := gateway.KhaltiInitiateRequest{
		ReturnURL:         s.baseURL + "/api/payments/khalti/return",
		WebsiteURL:        s.baseURL,
		Amount:            gateway.PaisaAmount(payment.Amount),
		PurchaseOrderID:   payment.TransactionRef,
		PurchaseOrderName: "Pet Adoption - " + pet.Name,
		CustomerInfo: gateway.CustomerInfo{
			Name:  user.Name,
			Email: user.Email,
			Phone: phone,
		},
	}

	resp, err := s.wallet.Initiate(ctx, req)
	if err != nil {
		if _, ferr := s.failPayment(ctx, payment, model.MethodKhalti, err.Error()); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	payment.Method = model.MethodKhalti
	payment.Status = model.PaymentStatusInitiated
	payment.ExternalPaymentID = resp.Pidx
	payment.RedirectURL = resp.PaymentURL
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	s.recordEvent(ctx, payment.ID, model.PaymentStatusInitiated, "")

	return &GatewayRedirect{Method: model.MethodKhalti, RedirectURL: resp.PaymentURL}, nil
}

func (s *paymentService) initiateBankRedirect(ctx context.Context, payment *model.Payment) (*GatewayRedirect, error) {
	successURL := fmt.Sprintf("%s/api/payments/esewa/callback?oid=%s", s.baseURL, payment.TransactionRef)
	failureURL := fmt.Sprintf("%s/api/payments/status?oid=%s", s.baseURL, payment.TransactionRef)

	form := s.bank.FormPayload(payment.Amount, payment.TransactionRef, successURL, failureURL)

	payment.Method = model.MethodEsewa
	payment.Status = model.PaymentStatusInitiated
	payment.GatewaySignature = form.Fields["signature"]
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	s.recordEvent(ctx, payment.ID, model.PaymentStatusInitiated, "")

	return &GatewayRedirect{Method: model.MethodEsewa, FormAction: form.Action, FormFields: form.Fields}, nil
}

// RegenerateReference assigns a fresh transaction reference so the gateway
// never sees a duplicate on retry. Allowed only for pending or failed
// payments; a failed payment re-enters the machine at PENDING.
func (s *paymentService) RegenerateReference(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}

	if payment.Status != model.PaymentStatusPending && payment.Status != model.PaymentStatusFailed {
		return nil, apperrors.ErrPaymentNotRetryable
	}

	payment.TransactionRef = model.NewTransactionRef()
	if payment.Status == model.PaymentStatusFailed {
		payment.Status = model.PaymentStatusPending
		payment.Method = model.MethodPending
		payment.ErrorMessage = ""
		payment.ExternalRef = ""
		payment.ExternalPaymentID = ""
		payment.GatewaySignature = ""
		payment.RedirectURL = ""
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	s.recordEvent(ctx, payment.ID, payment.Status, "reference regenerated for retry")
	return payment, nil
}

// Reconcile matches a gateway callback to a payment record and applies its
// outcome exactly once. All gateway and protocol failures are folded into a
// FAILED status with a diagnostic message; the only error surfaced to the
// caller besides storage faults is an unresolvable payment.
func (s *paymentService) Reconcile(ctx context.Context, cb Callback) (*Outcome, error) {
	payment, err := s.resolvePayment(ctx, cb)
	if err != nil {
		return nil, err
	}

	// Idempotence guard: terminal payments are never re-processed, and the
	// pet-adoption side effect is never triggered twice.
	if payment.Status.Terminal() {
		return outcomeFor(payment), nil
	}

	mutex := s.petMutex(payment.PetID)
	mutex.Lock()
	defer mutex.Unlock()

	switch cb.Method {
	case model.MethodKhalti:
		return s.reconcileWallet(ctx, payment, cb)
	case model.MethodEsewa:
		return s.reconcileBankRedirect(ctx, payment, cb)
	default:
		return s.failPayment(ctx, payment, model.MethodPending, fmt.Sprintf("unknown payment method %q in callback", cb.Method))
	}
}

// resolvePayment finds the callback's target payment: primarily by the
// echoed transaction reference, with a bounded fallback to the caller's most
// recent pending payment. The fallback exists because the gateways do not
// always echo the reference faithfully; when used, the callback's reference
// is adopted onto the resolved payment.
func (s *paymentService) resolvePayment(ctx context.Context, cb Callback) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByTransactionRef(ctx, cb.TransactionRef)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find payment: %w", err)
	}

	if cb.UserID == uuid.Nil {
		return nil, apperrors.ErrPaymentNotFound
	}

	payment, err = s.paymentRepo.LatestPendingForUser(ctx, cb.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find pending payment: %w", err)
	}

	if cb.TransactionRef != "" {
		payment.TransactionRef = cb.TransactionRef
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("adopt callback reference: %w", err)
		}
	}
	return payment, nil
}

func (s *paymentService) reconcileWallet(ctx context.Context, payment *model.Payment, cb Callback) (*Outcome, error) {
	pidx := cb.Pidx
	if pidx == "" {
		pidx = payment.ExternalPaymentID
	}
	if pidx == "" {
		return s.failPayment(ctx, payment, model.MethodKhalti, "wallet callback carries no payment id")
	}

	// The return redirect is client-supplied and not trusted for funds
	// movement; only the gateway's own lookup completes a payment.
	lookup, err := s.wallet.Lookup(ctx, pidx)
	if err != nil {
		return s.failPayment(ctx, payment, model.MethodKhalti, err.Error())
	}
	if !lookup.Completed() {
		return s.failPayment(ctx, payment, model.MethodKhalti, fmt.Sprintf("wallet reports status %q", lookup.Status))
	}

	return s.completePayment(ctx, payment, model.MethodKhalti, lookup.TransactionID)
}

func (s *paymentService) reconcileBankRedirect(ctx context.Context, payment *model.Payment, cb Callback) (*Outcome, error) {
	if cb.Data != "" {
		outcome, err := s.bank.DecodeCallback(cb.Data)
		if err != nil {
			return s.failPayment(ctx, payment, model.MethodEsewa, err.Error())
		}
		if outcome.Status != gateway.CallbackSuccess {
			return s.failPayment(ctx, payment, model.MethodEsewa, fmt.Sprintf("payment not completed; gateway status %q", outcome.RawStatus))
		}
		return s.completePayment(ctx, payment, model.MethodEsewa, outcome.ExternalTxnID)
	}

	// Legacy protocol: separate query parameters, verified through the
	// gateway's transaction-record endpoint.
	if cb.LegacyRefID == "" {
		return s.failPayment(ctx, payment, model.MethodEsewa, "legacy callback missing refId")
	}
	if err := s.bank.VerifyLegacy(ctx, cb.LegacyAmount, cb.LegacyRefID, payment.TransactionRef); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateTransaction) {
			return s.failPayment(ctx, payment, model.MethodEsewa,
				fmt.Sprintf("%s; retry with a regenerated reference", apperrors.ErrDuplicateTransaction))
		}
		return s.failPayment(ctx, payment, model.MethodEsewa, err.Error())
	}
	return s.completePayment(ctx, payment, model.MethodEsewa, cb.LegacyRefID)
}

// completePayment moves the payment to COMPLETED and its pet to ADOPTED as
// one logical unit. The payment row is re-read under lock inside the
// transaction so two near-simultaneous callbacks cannot both apply the side
// effects; the pet transition is guarded so a second completing payment for
// the same pet is harmless.
func (s *paymentService) completePayment(ctx context.Context, payment *model.Payment, method model.PaymentMethod, externalRef string) (*Outcome, error) {
	transitioned := false
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context, payments repository.PaymentRepository, pets repository.PetRepository) error {
		locked, err := payments.FindByTransactionRefForUpdate(ctx, payment.TransactionRef)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if locked.Status.Terminal() {
			*payment = *locked
			return nil
		}

		locked.Status = model.PaymentStatusCompleted
		locked.Method = method
		locked.ExternalRef = externalRef
		locked.ErrorMessage = ""
		if err := payments.Update(ctx, locked); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		pet, err := pets.FindByIDForUpdate(ctx, locked.PetID)
		if err != nil {
			return fmt.Errorf("lock pet: %w", err)
		}
		if pet.Status != model.PetStatusAdopted {
			if err := pets.UpdateStatus(ctx, pet.ID, model.PetStatusAdopted); err != nil {
				return fmt.Errorf("update pet status: %w", err)
			}
		}

		*payment = *locked
		transitioned = true
		return nil
	})
	if err != nil {
		// A payment must never be left INITIATED with no diagnostic.
		return s.failPayment(ctx, payment, method, fmt.Sprintf("reconciliation error: %v", err))
	}

	if transitioned {
		_ = s.cache.Delete(ctx, cache.PetKey(payment.PetID))
		s.recordEvent(ctx, payment.ID, model.PaymentStatusCompleted, "")
	}
	return outcomeFor(payment), nil
}

// failPayment marks the payment FAILED with a non-empty diagnostic and
// returns the outcome. Pet status is left untouched on failure. The payment
// row is re-read under lock so a late gateway error for a payment that
// already completed is dropped instead of downgrading it.
func (s *paymentService) failPayment(ctx context.Context, payment *model.Payment, method model.PaymentMethod, reason string) (*Outcome, error) {
	if reason == "" {
		reason = "payment failed"
	}

	transitioned := false
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context, payments repository.PaymentRepository, _ repository.PetRepository) error {
		locked, err := payments.FindByTransactionRefForUpdate(ctx, payment.TransactionRef)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if locked.Status.Terminal() {
			*payment = *locked
			return nil
		}

		locked.Status = model.PaymentStatusFailed
		if method != model.MethodPending {
			locked.Method = method
		}
		locked.ErrorMessage = reason
		if err := payments.Update(ctx, locked); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}

		*payment = *locked
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark payment failed: %w", err)
	}

	if transitioned {
		s.recordEvent(ctx, payment.ID, model.PaymentStatusFailed, reason)
	}
	return outcomeFor(payment), nil
}

// Get finds a payment by ID.
func (s *paymentService) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// FindByReference finds a payment by its transaction reference.
func (s *paymentService) FindByReference(ctx context.Context, ref string) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByTransactionRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ListForUser returns the user's payment history.
func (s *paymentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	return s.paymentRepo.ListForUser(ctx, userID)
}

// MarkExpired marks a stale pending or initiated payment as expired.
func (s *paymentService) MarkExpired(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.adminTransition(ctx, id, model.PaymentStatusExpired)
}

// MarkCancelled marks a pending or initiated payment as cancelled.
func (s *paymentService) MarkCancelled(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.adminTransition(ctx, id, model.PaymentStatusCancelled)
}

// MarkRefunded marks a completed payment as refunded. The pet's status is
// deliberately left alone; returning a refunded pet to the catalog is a
// separate curation decision.
func (s *paymentService) MarkRefunded(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return s.adminTransition(ctx, id, model.PaymentStatusRefunded)
}

// adminTransition applies an out-of-flow terminal state. These are reachable
// only through explicit administrative action, never the callback path. The
// allowed-transition check runs against a row-locked read so an action racing
// a success callback cannot overwrite a fresh COMPLETED.
func (s *paymentService) adminTransition(ctx context.Context, id uuid.UUID, to model.PaymentStatus) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, payments repository.PaymentRepository, _ repository.PetRepository) error {
		locked, err := payments.FindByTransactionRefForUpdate(ctx, payment.TransactionRef)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if !adminTransitionAllowed(locked.Status, to) {
			return apperrors.ErrInvalidTransition
		}

		locked.Status = to
		if err := payments.Update(ctx, locked); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		*payment = *locked
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return nil, apperrors.ErrInvalidTransition
		}
		return nil, err
	}

	s.recordEvent(ctx, payment.ID, to, "administrative action")
	return payment, nil
}

func adminTransitionAllowed(from, to model.PaymentStatus) bool {
	switch to {
	case model.PaymentStatusExpired, model.PaymentStatusCancelled:
		return from == model.PaymentStatusPending || from == model.PaymentStatusInitiated
	case model.PaymentStatusRefunded:
		return from == model.PaymentStatusCompleted
	}
	return false
}

func outcomeFor(payment *model.Payment) *Outcome {
	return &Outcome{
		Status:       payment.Status,
		Payment:      payment,
		ErrorMessage: payment.ErrorMessage,
	}
}
