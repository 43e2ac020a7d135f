package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger production: JSON, иначе цветной консольный вывод.
// level пустой - уровень по умолчанию для окружения.
func NewLogger(env, level string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = lvl
	}
	config.OutputPaths = []string{"stdout"}

	return config.Build(zap.Fields(zap.String("service", "club_league")))
}
