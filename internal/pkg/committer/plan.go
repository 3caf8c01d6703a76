// Package committer applies Spanner mutations for the metadata collection.
//
// Repositories never write directly. They build mutations, a CommitPlan
// collects them, and the Committer applies the plan either blind (deletes,
// which need no read) or inside a read-write transaction (field merges,
// which read the stored row first):
//
//	err := comm.ApplyInTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
//	    row, err := txn.ReadRow(ctx, table, spanner.Key{key}, cols)
//	    ...
//	    plan.Add(model.UpsertMut(merged))
//	    return nil
//	})
//
// Merges are last-write-wins: there is no version column.
package committer

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
)

// CommitPlan collects the mutations of one write. Nil mutations are
// dropped, so mutation builders can return nil for "nothing to change".
type CommitPlan struct {
	muts []*spanner.Mutation
}

// NewPlan returns an empty plan.
func NewPlan() *CommitPlan { return &CommitPlan{} }

// Add appends mut unless it is nil.
func (p *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		p.muts = append(p.muts, mut)
	}
}

// Len is the number of collected mutations.
func (p *CommitPlan) Len() int { return len(p.muts) }

// Committer writes plans through one Spanner client.
type Committer struct {
	client *spanner.Client
}

func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply writes the plan blind, with no read. An empty plan is a no-op.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) error {
	if plan.Len() == 0 {
		return nil
	}
	if _, err := c.client.Apply(ctx, plan.muts); err != nil {
		return fmt.Errorf("failed to apply %d mutation(s): %w", plan.Len(), err)
	}
	return nil
}

// ApplyInTransaction runs build in a read-write transaction and buffers the
// plan it fills. Spanner may run build more than once after an abort, so
// every attempt gets a fresh plan.
func (c *Committer) ApplyInTransaction(ctx context.Context, build func(context.Context, *spanner.ReadWriteTransaction, *CommitPlan) error) error {
	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		plan := NewPlan()
		if err := build(ctx, txn, plan); err != nil {
			return err
		}
		if plan.Len() == 0 {
			return nil
		}
		return txn.BufferWrite(plan.muts)
	})
	if err != nil {
		return fmt.Errorf("metadata transaction failed: %w", err)
	}
	return nil
}
