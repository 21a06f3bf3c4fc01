package repository

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestUserCreateAndGet(t *testing.T) {
	users := NewUserRepository(testDB(t))

	id, created, err := users.Create("a@example.com", "hash", 15, false)
	require.NoError(t, err)
	require.True(t, created)
	require.Greater(t, id, 0)

	user, err := users.GetByEmail("a@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, 15, user.Tokens)
	assert.False(t, user.IsAdmin)

	byID, err := users.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "a@example.com", byID.Email)

	missing, err := users.GetByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	users := NewUserRepository(testDB(t))

	_, created, err := users.Create("a@example.com", "hash", 15, false)
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = users.Create("a@example.com", "other", 15, false)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCheckAndDebit(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "hash", 10, false)
	require.NoError(t, err)

	balance, err := users.CheckAndDebit(id, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, balance)

	balance, err = users.CheckAndDebit(id, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCheckAndDebitInsufficient(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "hash", 3, false)
	require.NoError(t, err)

	_, err = users.CheckAndDebit(id, 5)

	var insufficient *InsufficientTokensError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Required)
	assert.Equal(t, 3, insufficient.Available)

	// failed debit must not touch the balance
	user, err := users.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, 3, user.Tokens)
}

func TestCheckAndDebitUnknownUser(t *testing.T) {
	users := NewUserRepository(testDB(t))

	_, err := users.CheckAndDebit(999, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCheckAndDebitConcurrent(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "hash", 5, false)
	require.NoError(t, err)

	// six concurrent debits of 3 against a balance of 5: exactly one can win
	var wg sync.WaitGroup
	results := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := users.CheckAndDebit(id, 3)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var insufficient *InsufficientTokensError
			require.True(t, errors.As(err, &insufficient))
		}
	}
	assert.Equal(t, 1, succeeded)

	user, err := users.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, 2, user.Tokens)
}

func TestCheckAndDebitRollbackKeepsPoolUsable(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "hash", 6, false)
	require.NoError(t, err)

	// alternate committed debits with rolled-back failure diagnoses; the
	// typed errors must survive the transaction wrapper unchanged
	balance, err := users.CheckAndDebit(id, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	_, err = users.CheckAndDebit(id, 4)
	var insufficient *InsufficientTokensError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Available)

	balance, err = users.CheckAndDebit(id, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	_, err = users.CheckAndDebit(999, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefundAndGrant(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "hash", 5, false)
	require.NoError(t, err)

	require.NoError(t, users.Refund(id, 3))
	require.NoError(t, users.Grant(id, 10))

	user, err := users.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, 18, user.Tokens)

	assert.ErrorIs(t, users.Refund(999, 1), ErrUserNotFound)
}

func TestUserList(t *testing.T) {
	users := NewUserRepository(testDB(t))
	_, _, err := users.Create("poor@example.com", "hash", 2, false)
	require.NoError(t, err)
	_, _, err = users.Create("rich@example.com", "hash", 50, false)
	require.NoError(t, err)

	all, err := users.List(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	min := 10
	filtered, err := users.List(&min)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "rich@example.com", filtered[0].Email)
}

func TestUserUpdatePassword(t *testing.T) {
	users := NewUserRepository(testDB(t))
	id, _, err := users.Create("a@example.com", "old", 5, false)
	require.NoError(t, err)

	updated, err := users.UpdatePassword(id, "new")
	require.NoError(t, err)
	assert.True(t, updated)

	user, err := users.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "new", user.Password)

	updated, err = users.UpdatePassword(999, "new")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestModelInsertAndFind(t *testing.T) {
	d := testDB(t)
	users := NewUserRepository(d)
	models := NewModelRepository(d)

	userID, _, err := users.Create("a@example.com", "hash", 15, false)
	require.NoError(t, err)

	id, inserted, err := models.Insert(userID, "1_demo", "linear", "/tmp/1_demo.gob", `["age"]`)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Greater(t, id, 0)

	rec, err := models.Find(userID, "1_demo")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "linear", rec.ModelType)
	assert.Equal(t, `["age"]`, rec.FeatureCols)
}

func TestModelInsertDuplicateName(t *testing.T) {
	d := testDB(t)
	users := NewUserRepository(d)
	models := NewModelRepository(d)

	userID, _, err := users.Create("a@example.com", "hash", 15, false)
	require.NoError(t, err)

	_, inserted, err := models.Insert(userID, "1_demo", "linear", "p", "[]")
	require.NoError(t, err)
	require.True(t, inserted)

	_, inserted, err = models.Insert(userID, "1_demo", "knn", "p2", "[]")
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestModelOwnershipScoping(t *testing.T) {
	d := testDB(t)
	users := NewUserRepository(d)
	models := NewModelRepository(d)

	alice, _, err := users.Create("alice@example.com", "hash", 15, false)
	require.NoError(t, err)
	bob, _, err := users.Create("bob@example.com", "hash", 15, false)
	require.NoError(t, err)

	_, _, err = models.Insert(alice, "shared_name", "linear", "p", "[]")
	require.NoError(t, err)

	// another user sees nothing under the same name
	rec, err := models.Find(bob, "shared_name")
	require.NoError(t, err)
	assert.Nil(t, rec)

	deleted, err := models.Delete(bob, "shared_name")
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err := models.List(bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err = models.Delete(alice, "shared_name")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestUserDeleteCascadesModels(t *testing.T) {
	d := testDB(t)
	users := NewUserRepository(d)
	models := NewModelRepository(d)

	userID, _, err := users.Create("a@example.com", "hash", 15, false)
	require.NoError(t, err)
	_, _, err = models.Insert(userID, "1_demo", "linear", "p", "[]")
	require.NoError(t, err)

	deleted, err := users.Delete(userID)
	require.NoError(t, err)
	require.True(t, deleted)

	remaining, err := models.List(userID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	rec, err := models.Find(userID, "1_demo")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
