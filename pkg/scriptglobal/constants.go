package scriptglobal

// Database category bits. DbCatEverything covers all categories.
const (
	DbCatConfig          = 1 << 0
	DbCatState           = 1 << 1
	DbCatAcknowledgement = 1 << 2
	DbCatComment         = 1 << 3
	DbCatDowntime        = 1 << 4
	DbCatEventHandler    = 1 << 5
	DbCatExternalCommand = 1 << 6
	DbCatFlapping        = 1 << 7
	DbCatCheck           = 1 << 8
	DbCatLog             = 1 << 9
	DbCatNotification    = 1 << 10
	DbCatProgramStatus   = 1 << 11
	DbCatRetention       = 1 << 12
	DbCatStateHistory    = 1 << 13

	DbCatEverything = DbCatConfig | DbCatState | DbCatAcknowledgement |
		DbCatComment | DbCatDowntime | DbCatEventHandler |
		DbCatExternalCommand | DbCatFlapping | DbCatCheck | DbCatLog |
		DbCatNotification | DbCatProgramStatus | DbCatRetention |
		DbCatStateHistory
)

// Service and host state codes.
const (
	ServiceOK       = 0
	ServiceWarning  = 1
	ServiceCritical = 2
	ServiceUnknown  = 3

	HostUp   = 0
	HostDown = 1
)

// CategoryFilterMap maps category filter strings to their bit values.
var CategoryFilterMap = map[string]int{
	"DbCatConfig":          DbCatConfig,
	"DbCatState":           DbCatState,
	"DbCatAcknowledgement": DbCatAcknowledgement,
	"DbCatComment":         DbCatComment,
	"DbCatDowntime":        DbCatDowntime,
	"DbCatEventHandler":    DbCatEventHandler,
	"DbCatExternalCommand": DbCatExternalCommand,
	"DbCatFlapping":        DbCatFlapping,
	"DbCatCheck":           DbCatCheck,
	"DbCatLog":             DbCatLog,
	"DbCatNotification":    DbCatNotification,
	"DbCatProgramStatus":   DbCatProgramStatus,
	"DbCatRetention":       DbCatRetention,
	"DbCatStateHistory":    DbCatStateHistory,
	"DbCatEverything":      DbCatEverything,
}

// RegisterBuiltinConstants publishes the built-in constants into the
// registry. Invoked once by the host during startup; there is no
// static initializer.
func RegisterBuiltinConstants(r *Registry) error {
	constants := map[string]int{
		"Constants.DbCatConfig":          DbCatConfig,
		"Constants.DbCatState":           DbCatState,
		"Constants.DbCatAcknowledgement": DbCatAcknowledgement,
		"Constants.DbCatComment":         DbCatComment,
		"Constants.DbCatDowntime":        DbCatDowntime,
		"Constants.DbCatEventHandler":    DbCatEventHandler,
		"Constants.DbCatExternalCommand": DbCatExternalCommand,
		"Constants.DbCatFlapping":        DbCatFlapping,
		"Constants.DbCatCheck":           DbCatCheck,
		"Constants.DbCatLog":             DbCatLog,
		"Constants.DbCatNotification":    DbCatNotification,
		"Constants.DbCatProgramStatus":   DbCatProgramStatus,
		"Constants.DbCatRetention":       DbCatRetention,
		"Constants.DbCatStateHistory":    DbCatStateHistory,
		"Constants.DbCatEverything":      DbCatEverything,

		"Constants.ServiceOK":       ServiceOK,
		"Constants.ServiceWarning":  ServiceWarning,
		"Constants.ServiceCritical": ServiceCritical,
		"Constants.ServiceUnknown":  ServiceUnknown,
		"Constants.HostUp":          HostUp,
		"Constants.HostDown":        HostDown,
	}

	for name, value := range constants {
		if err := r.Set(name, value); err != nil {
			return err
		}
	}

	return nil
}
