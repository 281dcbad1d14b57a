package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add      func(AddArgs) (Result, error)
	Settle   func(SettleArgs) (Result, error)
	Toggle   func(IndexArgs) (Result, error)
	Delete   func(IndexArgs) (Result, error)
	Deadline func(DeadlineArgs) (Result, error)
	Remind   func(IndexArgs) (Result, error)
	Template func(TemplateArgs) (Result, error)
	Group    func(GroupArgs) (Result, error)
	Archive  func(ArchiveArgs) (Result, error)
	Notify   func(NotifyArgs) (Result, error)
	Export   func() (Result, error)
	Sync     func() (Result, error)
}

func missing(name string) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: name + " handler not configured"}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing("add")
		}
		return handlers.Add(*cmd.Add)
	case TypeSettle:
		if handlers.Settle == nil {
			return Result{}, missing("settle")
		}
		return handlers.Settle(*cmd.Settle)
	case TypeToggle:
		if handlers.Toggle == nil {
			return Result{}, missing("toggle")
		}
		return handlers.Toggle(*cmd.Index)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing("delete")
		}
		return handlers.Delete(*cmd.Index)
	case TypeDeadline:
		if handlers.Deadline == nil {
			return Result{}, missing("deadline")
		}
		return handlers.Deadline(*cmd.Deadline)
	case TypeRemind:
		if handlers.Remind == nil {
			return Result{}, missing("remind")
		}
		return handlers.Remind(*cmd.Index)
	case TypeTemplate:
		if handlers.Template == nil {
			return Result{}, missing("template")
		}
		return handlers.Template(*cmd.Template)
	case TypeGroup:
		if handlers.Group == nil {
			return Result{}, missing("group")
		}
		return handlers.Group(*cmd.Group)
	case TypeArchive:
		if handlers.Archive == nil {
			return Result{}, missing("archive")
		}
		return handlers.Archive(*cmd.Archive)
	case TypeNotify:
		if handlers.Notify == nil {
			return Result{}, missing("notify")
		}
		return handlers.Notify(*cmd.Notify)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, missing("export")
		}
		return handlers.Export()
	case TypeSync:
		if handlers.Sync == nil {
			return Result{}, missing("sync")
		}
		return handlers.Sync()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
