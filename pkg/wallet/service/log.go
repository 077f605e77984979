package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

const serviceName = "WalletService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the wallet Service.
// It logs method entry/exit, duration, and errors.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) GetPrimaryWallet(ctx context.Context, userID string) (w *wallet.Wallet, err error) {
	defer ls.observe("GetPrimaryWallet", userID, time.Now(), &err)
	return ls.svc.GetPrimaryWallet(ctx, userID)
}

func (ls *logService) CreateWallet(ctx context.Context, userID string, kind wallet.Kind) (w *wallet.Wallet, err error) {
	start := time.Now()
	ls.logger.Info("CreateWallet started",
		zap.String("service", serviceName),
		zap.String("method", "CreateWallet"),
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
	)
	defer func() {
		if err != nil {
			ls.logger.Error("CreateWallet failed",
				zap.String("service", serviceName),
				zap.String("method", "CreateWallet"),
				zap.String("user_id", userID),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("CreateWallet completed",
			zap.String("service", serviceName),
			zap.String("method", "CreateWallet"),
			zap.String("user_id", userID),
			zap.String("wallet_id", w.ID.String()),
			zap.String("address", w.Address),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.CreateWallet(ctx, userID, kind)
}

func (ls *logService) EnhancedDetails(ctx context.Context, userID string) (d *wallet.EnhancedDetails, err error) {
	defer ls.observe("EnhancedDetails", userID, time.Now(), &err)
	return ls.svc.EnhancedDetails(ctx, userID)
}

func (ls *logService) ListWallets(ctx context.Context, userID string) (ws []*wallet.Wallet, err error) {
	defer ls.observe("ListWallets", userID, time.Now(), &err)
	return ls.svc.ListWallets(ctx, userID)
}

func (ls *logService) observe(method, userID string, start time.Time, err *error) {
	if *err != nil {
		ls.logger.Error(method+" failed",
			zap.String("service", serviceName),
			zap.String("method", method),
			zap.String("user_id", userID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(*err),
		)
		return
	}
	ls.logger.Debug(method+" completed",
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.String("user_id", userID),
		zap.Duration("duration", time.Since(start)),
	)
}
