package logging

import "go.uber.org/zap"

// New builds the process logger: JSON at info level in production,
// console at debug otherwise.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
