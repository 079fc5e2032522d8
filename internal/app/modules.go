package app

import (
	"github.com/vk/livespan/internal/registry"
	"github.com/vk/livespan/modules/env"
	"github.com/vk/livespan/modules/note"
)

// coreModules is the definitive list of all component modules that are
// compiled into the livespan binary.
var coreModules = []registry.Module{
	&note.Module{},
	&env.Module{},
}
