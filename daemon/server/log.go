package server

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
	"github.com/IgraLabs/kaswallet/util/panics"
)

var log = logger.RegisterSubSystem("WSVC")
var spawn = panics.GoroutineWrapperFunc(log)
