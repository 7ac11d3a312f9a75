// Command ledgerctl inspects balances and audits ledger chains from the
// command line.
package main

import (
	"os"

	"finops/internal/config"
	"finops/internal/repositories"
	"finops/internal/services/ledger"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	open := func() (ledger.Service, func(), error) {
		cfg := config.Load()
		db, err := repositories.InitDB(cfg.DB, log)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := repositories.Close(db); err != nil {
				log.WithError(err).Warn("failed to close database connection")
			}
		}
		svc := ledger.NewService(repositories.NewStore(db), ledger.Config{MaxRetries: cfg.LedgerMaxRetries}, nil, log)
		return svc, closeDB, nil
	}

	if err := newRootCmd(open).Execute(); err != nil {
		os.Exit(1)
	}
}
