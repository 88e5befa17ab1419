package contract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servly/marketplace_be/internal/models"
)

// fakeStore keeps contracts in memory and mimics the CAS discipline of the
// real store, including an optional forced conflict.
type fakeStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]models.Contract
	events    []models.ContractEvent

	failNextUpdate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{contracts: make(map[uuid.UUID]models.Contract)}
}

func (f *fakeStore) Create(_ context.Context, c *models.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contracts[c.ID] = *c
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return models.Contract{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) Update(_ context.Context, c *models.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextUpdate != nil {
		err := f.failNextUpdate
		f.failNextUpdate = nil
		return err
	}
	stored, ok := f.contracts[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrConflictingWrite
	}
	c.Version++
	f.contracts[c.ID] = *c
	return nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Contract
	for _, c := range f.contracts {
		if c.ClientID == userID || c.ProviderID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Contract
	for _, c := range f.contracts {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, statuses ...models.ContractStatus) ([]models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Contract
	for _, c := range f.contracts {
		for _, s := range statuses {
			if c.Status == s {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) HasOpenContract(_ context.Context, clientID, providerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contracts {
		if c.ClientID == clientID && c.ProviderID == providerID && !c.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) LatestBetween(_ context.Context, a, b uuid.UUID) (models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Contract
	for _, c := range f.contracts {
		c := c
		pair := (c.ClientID == a && c.ProviderID == b) || (c.ClientID == b && c.ProviderID == a)
		if pair && (latest == nil || c.CreatedAt.After(latest.CreatedAt)) {
			latest = &c
		}
	}
	if latest == nil {
		return models.Contract{}, ErrNotFound
	}
	return *latest, nil
}

func (f *fakeStore) AppendEvent(_ context.Context, ev *models.ContractEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	cleared       [][2]uuid.UUID
	adminCleared  [][2]uuid.UUID
	changed       []Outcome
	clearErr      error
	adminClearErr error
}

func (f *fakeNotifier) ConversationShouldClear(_ context.Context, a, b uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, [2]uuid.UUID{a, b})
	return f.clearErr
}

func (f *fakeNotifier) AdminConversationsShouldClear(_ context.Context, a, b uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCleared = append(f.adminCleared, [2]uuid.UUID{a, b})
	return f.adminClearErr
}

func (f *fakeNotifier) ContractChanged(_ models.Contract, outcome Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, outcome)
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notify := &fakeNotifier{}
	return NewService(store, notify), store, notify
}

func TestServiceCreate(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Limpieza de casas", 50)
	require.NoError(t, err)
	assert.Equal(t, models.ContractPending, c.Status)
	assert.Equal(t, PlatformCommissionRate, c.CommissionRate)
	assert.False(t, c.ClientDeposited)
	assert.Len(t, store.events, 1)

	t.Run("second open contract for the pair rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, clientID, providerID, "Limpieza de casas", 50)
		assert.ErrorIs(t, err, ErrOpenContractExists)
	})

	t.Run("allowed again once the first is terminal", func(t *testing.T) {
		stored := store.contracts[c.ID]
		stored.Status = models.ContractCancelled
		store.contracts[c.ID] = stored

		_, err := svc.Create(ctx, clientID, providerID, "Limpieza de casas", 50)
		assert.NoError(t, err)
	})

	t.Run("invalid rate", func(t *testing.T) {
		_, err := svc.Create(ctx, clientID, providerID, "Limpieza de casas", 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("self-contract rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, clientID, clientID, "Limpieza de casas", 50)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestServiceFullLifecycle(t *testing.T) {
	svc, store, notify := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Clases de música", 50)
	require.NoError(t, err)

	_, err = svc.MakeOffer(ctx, c.ID, providerID, 60)
	require.NoError(t, err)

	_, err = svc.DepositFunds(ctx, c.ID, clientID)
	require.NoError(t, err)

	d, err := svc.SubmitAction(ctx, c.ID, clientID, ActionFinalize)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaiting, d.Outcome)
	assert.Empty(t, notify.cleared, "no cleanup while waiting")

	d, err = svc.SubmitAction(ctx, c.ID, providerID, ActionFinalize)
	require.NoError(t, err)
	assert.Equal(t, models.ContractFinalized, d.Next.Status)

	// Terminal transition clears the parties' conversation.
	require.Len(t, notify.cleared, 1)
	assert.Equal(t, [2]uuid.UUID{clientID, providerID}, notify.cleared[0])

	// Audit trail captured every applied transition.
	assert.Len(t, store.events, 5)

	stored := store.contracts[c.ID]
	assert.Equal(t, models.ContractFinalized, stored.Status)
	assert.Equal(t, 60.0, stored.ServiceRate)
}

func TestServiceNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.MakeOffer(context.Background(), uuid.New(), providerID, 60)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceConflictingWrite(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Plomero", 40)
	require.NoError(t, err)

	store.failNextUpdate = ErrConflictingWrite

	_, err = svc.MakeOffer(ctx, c.ID, providerID, 45)
	assert.ErrorIs(t, err, ErrConflictingWrite)

	// The stored contract is unchanged by the failed write.
	stored := store.contracts[c.ID]
	assert.Equal(t, models.ContractPending, stored.Status)
	assert.Equal(t, 40.0, stored.ServiceRate)

	// A retry against the fresh state goes through.
	_, err = svc.MakeOffer(ctx, c.ID, providerID, 45)
	assert.NoError(t, err)
}

func TestServiceWriteFailureReportsFailure(t *testing.T) {
	svc, store, notify := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Electricista", 80)
	require.NoError(t, err)
	notify.changed = nil

	store.failNextUpdate = errors.New("connection reset")

	_, err = svc.MakeOffer(ctx, c.ID, providerID, 90)
	require.Error(t, err)
	assert.Empty(t, notify.changed, "no side effects for an unpersisted transition")
	assert.Equal(t, models.ContractPending, store.contracts[c.ID].Status)
}

func TestServiceDisputeFlow(t *testing.T) {
	svc, _, notify := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Mecánico", 100)
	require.NoError(t, err)
	_, err = svc.MakeOffer(ctx, c.ID, providerID, 100)
	require.NoError(t, err)
	_, err = svc.DepositFunds(ctx, c.ID, clientID)
	require.NoError(t, err)

	_, err = svc.SubmitAction(ctx, c.ID, clientID, ActionDispute)
	require.NoError(t, err)

	t.Run("non-initiator cannot withdraw", func(t *testing.T) {
		_, err := svc.SubmitAction(ctx, c.ID, providerID, ActionCancelDispute)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("admin resolution is terminal", func(t *testing.T) {
		adminID := uuid.New()
		d, err := svc.ResolveDispute(ctx, c.ID, adminID, models.ResolutionToClient)
		require.NoError(t, err)
		assert.Equal(t, models.ContractFinalizedByDispute, d.Next.Status)
		require.NotNil(t, d.Next.DisputeResolution)
		assert.Equal(t, models.ResolutionToClient, *d.Next.DisputeResolution)

		// Resolution clears both the party thread and the admin threads.
		assert.NotEmpty(t, notify.cleared)
		assert.NotEmpty(t, notify.adminCleared)

		_, err = svc.ResolveDispute(ctx, c.ID, adminID, models.ResolutionToProvider)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestServiceCancelDisputeClearsAdminThreads(t *testing.T) {
	svc, _, notify := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Jardinero", 30)
	require.NoError(t, err)
	_, err = svc.MakeOffer(ctx, c.ID, providerID, 30)
	require.NoError(t, err)
	_, err = svc.DepositFunds(ctx, c.ID, clientID)
	require.NoError(t, err)
	_, err = svc.SubmitAction(ctx, c.ID, clientID, ActionDispute)
	require.NoError(t, err)

	d, err := svc.SubmitAction(ctx, c.ID, clientID, ActionCancelDispute)
	require.NoError(t, err)
	assert.Equal(t, models.ContractActive, d.Next.Status)
	assert.Len(t, notify.adminCleared, 1)
	assert.Empty(t, notify.cleared, "back to active is not terminal")
}

func TestServiceVisibility(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, clientID, providerID, "Niñera", 25)
	require.NoError(t, err)

	t.Run("parties see their contracts", func(t *testing.T) {
		for _, id := range []uuid.UUID{clientID, providerID} {
			list, err := svc.ForUser(ctx, id, models.RoleClient)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		}
	})

	t.Run("strangers see nothing", func(t *testing.T) {
		list, err := svc.ForUser(ctx, strangerID, models.RoleClient)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = svc.Get(ctx, c.ID, strangerID, models.RoleClient)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		list, err := svc.ForUser(ctx, strangerID, models.RoleAdmin)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
