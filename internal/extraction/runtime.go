package extraction

import (
	"log/slog"

	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/internal/tasks"
	"github.com/JaimeStill/warden/pkg/broadcast"
	"github.com/JaimeStill/warden/pkg/devops"
	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/storage"
)

// Runtime bundles the dependencies a run requires.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Client    devops.Client
	Tasks     tasks.System
	Rules     compliance.Rules
	Observer  broadcast.Observer
	Archive   storage.System // nil disables run reports
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger

	Project   string
	TagFilter string
}
