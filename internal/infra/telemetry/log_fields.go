package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldServerName = "serverName"
	FieldProvider   = "provider"
	FieldProvenance = "provenance"
	FieldMode       = "mode"
	FieldStatus     = "status"
	FieldCycleID    = "cycleID"
	FieldScope      = "scope"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventCycleStart          = "cycle_start"
	EventCycleComplete       = "cycle_complete"
	EventCycleCoalesced      = "cycle_coalesced"
	EventProviderUnavailable = "provider_unavailable"
	EventProviderTimeout     = "provider_timeout"
	EventRegisterSuccess     = "register_success"
	EventRegisterConflict    = "register_conflict"
	EventRegisterFailure     = "register_failure"
	EventMergeCollision      = "merge_collision"
	EventMutationDenied      = "mutation_denied"
	EventConfigReload        = "config_reload"
	EventSeedImport          = "seed_import"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ServerNameField(name string) zap.Field {
	return zap.String(FieldServerName, name)
}

func ProviderField(provider string) zap.Field {
	return zap.String(FieldProvider, provider)
}

func ProvenanceField(provenance string) zap.Field {
	return zap.String(FieldProvenance, provenance)
}

func ModeField(mode string) zap.Field {
	return zap.String(FieldMode, mode)
}

func StatusField(status string) zap.Field {
	return zap.String(FieldStatus, status)
}

func CycleIDField(id string) zap.Field {
	return zap.String(FieldCycleID, id)
}

func ScopeField(scope string) zap.Field {
	return zap.String(FieldScope, scope)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
