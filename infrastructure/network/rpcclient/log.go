package rpcclient

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
	"github.com/IgraLabs/kaswallet/util/panics"
)

var log = logger.RegisterSubSystem("RPCC")
var spawn = panics.GoroutineWrapperFunc(log)
