package ingestion

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/decoder"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
)

// decodeLog normalises and decodes one raw log.
// Failures are logged with enough context to replay the log later and
// reported as ok=false; they never stop the pipeline.
func decodeLog(contract *chain.Contract, lg types.Log, logger *logrus.Entry) (domain.Event, bool) {
	fields := logrus.Fields{
		"block":     lg.BlockNumber,
		"tx_hash":   lg.TxHash.Hex(),
		"log_index": lg.Index,
	}

	raw, err := contract.Normalize(lg)
	if err != nil {
		observability.RecordDecodeError("unknown")
		logger.WithFields(fields).WithError(err).Error("failed to normalize log")
		return nil, false
	}
	if raw.Removed {
		logger.WithFields(fields).WithField("event", raw.Name).Warn("skipping log removed by reorg")
		return nil, false
	}

	ev, err := decoder.Decode(raw)
	if err != nil {
		observability.RecordDecodeError(raw.Name)
		logger.WithFields(fields).WithField("event", raw.Name).WithError(err).Error("failed to decode log")
		return nil, false
	}

	observability.RecordDecoded(string(ev.Type()))
	return ev, true
}
