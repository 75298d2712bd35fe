// Package di holds the typed container tokens of the arbitrage context.
package di

import (
	"github.com/fd1az/arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-engine/internal/di"
)

var (
	Scanner    = di.NewToken[*app.Scanner]("arbitrage.Scanner")
	Reporter   = di.NewToken[app.Reporter]("arbitrage:reporter")
	Strategies = di.NewToken[[]domain.Strategy]("arbitrage:strategies")
)

func GetScanner(sr di.ServiceRegistry) *app.Scanner { return di.GetToken(sr, Scanner) }

func GetReporter(sr di.ServiceRegistry) app.Reporter { return di.GetToken(sr, Reporter) }

func GetStrategies(sr di.ServiceRegistry) []domain.Strategy { return di.GetToken(sr, Strategies) }
