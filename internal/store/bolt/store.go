// Package bolt provides the BoltDB-backed record store. Bolt gives the
// properties the activation protocol needs without a server process:
// single-writer transactions serialize every read-modify-write, and the
// copy-on-write commit means a crash mid-write never surfaces a partial
// record.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"uvlicense/internal/store"
)

const (
	licenseBucket  = "licenses"
	purchaseBucket = "purchases"
	orderBucket    = "orders"
)

// Store is a bbolt-backed implementation of store.Store.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the store at path and ensures its buckets.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{licenseBucket, purchaseBucket, orderBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// PutLicense creates or replaces a license record.
func (s *Store) PutLicense(ctx context.Context, rec store.LicenseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("license id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode license %s: %w", rec.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket([]byte(licenseBucket)).Put([]byte(rec.ID), payload)
	})
}

// GetLicense fetches a license record or store.ErrNotFound.
func (s *Store) GetLicense(ctx context.Context, id string) (store.LicenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.LicenseRecord{}, err
	}

	var rec store.LicenseRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(licenseBucket)).Get([]byte(id))
		if raw == nil {
			return store.ErrNotFound
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode license %s: %w", id, err)
		}
		return nil
	})
	return rec, err
}

// UpdateLicense applies fn to the stored record inside one write
// transaction. Bolt's single writer serializes concurrent updates, so
// the read-check-write is linearizable per record. An error from fn
// rolls back the transaction untouched.
func (s *Store) UpdateLicense(ctx context.Context, id string, fn func(*store.LicenseRecord) error) (store.LicenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.LicenseRecord{}, err
	}

	var rec store.LicenseRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		bucket := tx.Bucket([]byte(licenseBucket))
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return store.ErrNotFound
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode license %s: %w", id, err)
		}

		if err := fn(&rec); err != nil {
			return err
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode license %s: %w", id, err)
		}
		return bucket.Put([]byte(id), payload)
	})
	return rec, err
}

// RecordPurchase writes the purchase, its license, and the order index
// entry atomically. Redelivered orders abort with store.ErrOrderExists
// before anything is written.
func (s *Store) RecordPurchase(ctx context.Context, purchase store.PurchaseRecord, license store.LicenseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if purchase.OrderID == "" {
		return fmt.Errorf("order id is required")
	}
	if license.ID == "" {
		return fmt.Errorf("license id is required")
	}

	purchasePayload, err := json.Marshal(purchase)
	if err != nil {
		return fmt.Errorf("encode purchase %s: %w", purchase.OrderID, err)
	}
	licensePayload, err := json.Marshal(license)
	if err != nil {
		return fmt.Errorf("encode license %s: %w", license.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		orders := tx.Bucket([]byte(orderBucket))
		if orders.Get([]byte(purchase.OrderID)) != nil {
			return store.ErrOrderExists
		}

		if err := orders.Put([]byte(purchase.OrderID), []byte(license.ID)); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(purchaseBucket)).Put([]byte(purchase.OrderID), purchasePayload); err != nil {
			return err
		}
		return tx.Bucket([]byte(licenseBucket)).Put([]byte(license.ID), licensePayload)
	})
}

// GetPurchaseByOrder fetches the purchase for an order ID.
func (s *Store) GetPurchaseByOrder(ctx context.Context, orderID string) (store.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return store.PurchaseRecord{}, err
	}

	var rec store.PurchaseRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(purchaseBucket)).Get([]byte(orderID))
		if raw == nil {
			return store.ErrNotFound
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode purchase %s: %w", orderID, err)
		}
		return nil
	})
	return rec, err
}

// ListPurchases returns all purchases in order-ID order.
func (s *Store) ListPurchases(ctx context.Context) ([]store.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []store.PurchaseRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(purchaseBucket)).ForEach(func(k, v []byte) error {
			var rec store.PurchaseRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode purchase %s: %w", string(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}
