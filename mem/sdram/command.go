package sdram

import "github.com/sarchlab/usbsniff/sim/hooking"

// CmdKind is a command on the SDRAM command bus.
type CmdKind int

// The SDRAM commands.
const (
	CmdKindNOP CmdKind = iota
	CmdKindInhibit
	CmdKindActivate
	CmdKindRead
	CmdKindWrite
	CmdKindBurstTerminate
	CmdKindPrecharge
	CmdKindAutoRefresh
	CmdKindLoadMode
)

var cmdKindNames = map[CmdKind]string{
	CmdKindNOP:            "NOP",
	CmdKindInhibit:        "INHIBIT",
	CmdKindActivate:       "ACTIVE",
	CmdKindRead:           "READ",
	CmdKindWrite:          "WRITE",
	CmdKindBurstTerminate: "BURST_TERM",
	CmdKindPrecharge:      "PRECHARGE",
	CmdKindAutoRefresh:    "AUTO_REFRESH",
	CmdKindLoadMode:       "LOAD_MODE",
}

func (k CmdKind) String() string {
	if n, ok := cmdKindNames[k]; ok {
		return n
	}

	return "UNKNOWN"
}

// Command is a command issued to the device, reported through
// HookPosCommand.
type Command struct {
	Cycle uint64
	Kind  CmdKind
	Bank  uint32
	Row   uint32
	Col   uint32
}

// HookPosCommand is invoked for every command other than NOP and INHIBIT.
// The Item of the HookCtx is a Command.
var HookPosCommand = &hooking.HookPos{Name: "SDRAMCommand"}
