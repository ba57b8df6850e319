package app

import (
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/modules/command"
	"github.com/specialistvlad/burstgraph/modules/env_vars"
	"github.com/specialistvlad/burstgraph/modules/file_write"
	"github.com/specialistvlad/burstgraph/modules/http_request"
	"github.com/specialistvlad/burstgraph/modules/print"
	"github.com/specialistvlad/burstgraph/modules/socketio"
)

// CoreModules returns every node kind compiled into the burstgraph binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&command.Module{},
		&env_vars.Module{},
		&file_write.Module{},
		&http_request.Module{},
		&print.Module{},
		&socketio.Module{},
	}
}
