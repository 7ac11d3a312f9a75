/*
Package ledger owns every balance mutation in the system.

A balance change is an append to the account's ledger chain followed by a
compare-and-swap of the stored balance:

	entry.sequence      = profile.version + 1
	entry.balance_after = entry.balance_before + entry.delta
	UPDATE profiles SET balance = ?, version = version + 1
	 WHERE id = ? AND version = ?

The profile row is locked for the rest of the transaction, so the swap only
misses when the lock was not honoured. A miss, or a sequence number already
taken by another writer, surfaces as
repositories.ErrStaleBalance and Run replays the whole unit of work with
exponential backoff.

Usage:

	svc := ledger.NewService(store, ledger.Config{MaxRetries: 5}, metrics, log)

	err := svc.Run(ctx, "recharge", func(tx repositories.Store) error {
	    entry, err := svc.Apply(ctx, tx, ledger.DeltaRequest{
	        AccountID: agentID,
	        Delta:     amount,
	        Kind:      models.LedgerKindRecharge,
	    })
	    ...
	})

Processors must call Apply with the Store handed to their Run callback. The
standalone ApplyBalanceDelta opens its own unit of work. Entries appended
inside Run reach the MetricsCollector only after the unit of work commits.
*/
package ledger
