package signal

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
	"github.com/IgraLabs/kaswallet/util/panics"
)

var log = logger.RegisterSubSystem("SIGN")
var spawn = panics.GoroutineWrapperFunc(log)
