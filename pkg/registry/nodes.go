package registry

import (
	"github.com/gatehouse-id/gatehouse/pkg/nodes/condition"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/cookie"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/otp"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/password"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/script"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/start"
	"github.com/gatehouse-id/gatehouse/pkg/nodes/terminal"
)

// RegisterDefaultNodes registers all built-in node kind factories.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(start.NewFactory())
	r.RegisterNode(cookie.NewFactory())
	r.RegisterNode(password.NewFactory())
	r.RegisterNode(otp.NewFactory())
	r.RegisterNode(condition.NewFactory())
	r.RegisterNode(script.NewFactory())
	r.RegisterNode(terminal.NewAllowFactory())
	r.RegisterNode(terminal.NewDenyFactory())
}
