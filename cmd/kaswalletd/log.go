package main

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
	"github.com/IgraLabs/kaswallet/util/panics"
)

var log = logger.RegisterSubSystem("KSWD")
var spawn = panics.GoroutineWrapperFunc(log)
