package sticker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santua/pkg/models"
)

func TestRandomID_Format(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := RandomID()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, "SN"))
		require.Equal(t, strings.ToUpper(id), id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateBatch(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	ctx := context.Background()

	batch, err := reg.GenerateBatch(ctx, 3, "standard")
	require.NoError(t, err)
	require.Len(t, batch.IDs, 3)
	assert.NotEmpty(t, batch.ID)

	ids := map[string]struct{}{}
	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, s := range all {
		assert.False(t, s.Activated)
		assert.False(t, s.PaymentConfirmed)
		assert.Equal(t, batch.ID, s.BatchID)
		assert.Equal(t, "standard", s.Kind)
		ids[s.ID] = struct{}{}
	}
	assert.Len(t, ids, 3)
}

func TestGenerateBatch_Validation(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.GenerateBatch(context.Background(), 0, "x")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = reg.GenerateBatch(context.Background(), MaxBatchSize+1, "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateBatch_DefaultKind(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())

	batch, err := reg.GenerateBatch(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKind, batch.Kind)
}

func TestGenerateBatch_RetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), models.Sticker{ID: "SNTAKEN"}))

	ids := []string{"SNTAKEN", "SNTAKEN", "SNFREE"}
	n := 0
	reg := NewRegistry(store, WithIDSource(func() (string, error) {
		id := ids[n]
		n++
		return id, nil
	}))

	batch, err := reg.GenerateBatch(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"SNFREE"}, batch.IDs)
}

func TestGenerateBatch_GivesUpAfterAttempts(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), models.Sticker{ID: "SNTAKEN"}))
	reg := NewRegistry(store, WithIDSource(func() (string, error) { return "SNTAKEN", nil }))

	_, err := reg.GenerateBatch(context.Background(), 1, "")
	require.Error(t, err)
}

func TestConfigure_ForbiddenUntilPaymentConfirmed(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	ctx := context.Background()

	batch, err := reg.GenerateBatch(ctx, 1, "standard")
	require.NoError(t, err)
	id := batch.IDs[0]

	details := Details{ID: strings.ToLower(id), Alias: "Auto", Phone: "+5491100000000", Message: "call me"}

	_, err = reg.Configure(ctx, details)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = reg.ConfirmPayment(ctx, id)
	require.NoError(t, err)

	s, err := reg.Configure(ctx, details)
	require.NoError(t, err)
	assert.Equal(t, "Auto", s.OwnerAlias)
	assert.Equal(t, "standard", s.Kind)

	contact, err := reg.Lookup(ctx, " "+strings.ToLower(id)+" ")
	require.NoError(t, err)
	assert.Equal(t, "+5491100000000", contact.Phone)
	assert.Equal(t, "call me", contact.Message)
}

func TestConfigure_UnknownIsForbidden(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Configure(context.Background(), Details{ID: "SNNOPE"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = reg.Configure(context.Background(), Details{ID: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmPayment_UnknownIDIsReconciled(t *testing.T) {
	var activated []models.Sticker
	reg := NewRegistry(NewMemoryStore(), WithActivationListener(func(s models.Sticker) {
		activated = append(activated, s)
	}))
	ctx := context.Background()

	s, err := reg.ConfirmPayment(ctx, "snlost1")
	require.NoError(t, err)
	assert.Equal(t, "SNLOST1", s.ID)
	assert.True(t, s.Activated)
	assert.True(t, s.PaymentConfirmed)
	require.NotNil(t, s.ActivatedAt)

	_, err = reg.ConfirmPayment(ctx, "SNLOST1")
	require.NoError(t, err)
	assert.Len(t, activated, 1, "second confirmation must not re-announce")

	st, err := reg.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Generated: 1, Activated: 1}, st)
}

func TestLookup_NotFound(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	ctx := context.Background()

	_, err := reg.Lookup(ctx, "SNNOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	batch, err := reg.GenerateBatch(ctx, 1, "")
	require.NoError(t, err)
	_, err = reg.Lookup(ctx, batch.IDs[0])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidate(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	ctx := context.Background()

	v, err := reg.Validate(ctx, "snx")
	require.NoError(t, err)
	assert.Equal(t, "new", v.Status)
	assert.Equal(t, "presentacion_pago.html?id=SNX", v.Redirect)

	_, err = reg.ConfirmPayment(ctx, "SNX")
	require.NoError(t, err)

	v, err = reg.Validate(ctx, "SNX")
	require.NoError(t, err)
	assert.Equal(t, "activated", v.Status)
	assert.Equal(t, "recuperar.html?id=SNX", v.Redirect)
}

func TestStats(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	ctx := context.Background()

	batch, err := reg.GenerateBatch(ctx, 4, "")
	require.NoError(t, err)
	_, err = reg.ConfirmPayment(ctx, batch.IDs[2])
	require.NoError(t, err)

	st, err := reg.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Generated: 4, Activated: 1}, st)
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("https://example.test/", "sn123", 0)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))
	assert.Equal(t, "https://example.test/s/SN123", ScanURL("https://example.test/", "sn123"))
}

func ExampleNormalizeID() {
	fmt.Println(NormalizeID("  sn1abc "))
	// Output: SN1ABC
}
