// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

func New() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
