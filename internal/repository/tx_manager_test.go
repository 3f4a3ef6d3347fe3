package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestRunInTxFlattensNestedCalls(t *testing.T) {
	// A nil root DB makes the test fail loudly if a nested call tries to
	// open a second transaction instead of reusing the bound one.
	mgr := NewTransactionManager(nil)

	outer := &gorm.DB{}
	ctx := context.WithValue(context.Background(), txKey, outer)

	ran := false
	err := mgr.RunInTx(ctx, func(txCtx context.Context) error {
		return mgr.RunInTx(txCtx, func(innerCtx context.Context) error {
			ran = true
			tx, ok := innerCtx.Value(txKey).(*gorm.DB)
			if !ok || tx != outer {
				t.Error("nested call must reuse the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}
	if !ran {
		t.Fatal("inner callback never ran")
	}
}

func TestRunInTxFlattenedErrorPropagates(t *testing.T) {
	mgr := NewTransactionManager(nil)
	ctx := context.WithValue(context.Background(), txKey, &gorm.DB{})

	sentinel := errors.New("write conflict")
	err := mgr.RunInTx(ctx, func(txCtx context.Context) error {
		return mgr.RunInTx(txCtx, func(context.Context) error {
			return sentinel
		})
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the callback error unchanged", err)
	}
}
