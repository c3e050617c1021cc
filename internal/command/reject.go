package command

// RejectReason classifies why a command was dropped. Per-command rejections
// are diagnostics, never faults: the tick pipeline keeps going.
type RejectReason string

const (
	RejectUnknownKind     RejectReason = "unknown_kind"
	RejectNationDead      RejectReason = "nation_eliminated"
	RejectNotOwner        RejectReason = "not_owner"
	RejectNotFound        RejectReason = "target_not_found"
	RejectInsufficient    RejectReason = "insufficient_resources"
	RejectSupplyCap       RejectReason = "supply_cap"
	RejectTypeLocked      RejectReason = "type_locked"
	RejectTypeUnknown     RejectReason = "type_unknown"
	RejectTechUnknown     RejectReason = "tech_unknown"
	RejectTechPrereq      RejectReason = "tech_prerequisite_missing"
	RejectTechUnlocked    RejectReason = "tech_already_unlocked"
	RejectTechBusy        RejectReason = "tech_research_in_progress"
	RejectTechForeign     RejectReason = "tech_foreign_legacy"
	RejectBadPlacement    RejectReason = "bad_placement"
	RejectOutOfBounds     RejectReason = "out_of_bounds"
	RejectWrongClass      RejectReason = "wrong_class"
	RejectNothingToCancel RejectReason = "nothing_to_cancel"
)

// Rejected records one dropped command for the diagnostics egress.
type Rejected struct {
	Nation int32
	Tick   uint64
	Kind   Kind
	Reason RejectReason
}
