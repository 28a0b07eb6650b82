// Package mailbox defines the file set, store operations, and wire
// conventions of one host-to-guest command channel. A mailbox is a fixed set
// of named files in a shared directory; atomic rename between those files is
// the only synchronization primitive the protocol relies on.
package mailbox

import "path/filepath"

// Protocol file names. These are fixed: both sides of the channel address
// the mailbox purely by these names inside the shared directory.
const (
	FileCmdStaging = "CMD.NEW"
	FileCmdPending = "CMD.TXT"
	FileCmdClaimed = "CMD.RUN"
	FileOutStaging = "OUT.NEW"
	FileOut        = "OUT.TXT"
	FileRcStaging  = "RC.NEW"
	FileRc         = "RC.TXT"
	FileStaStaging = "STA.NEW"
	FileSta        = "STA.TXT"
	FileLog        = "LOG.TXT"

	// FileConfig and FileServeLock are host-local conveniences, not part of
	// the protocol.
	FileConfig    = "mbx.yaml"
	FileServeLock = "serve.lock"
)

// Paths names every file of one mailbox instance rooted at Dir.
type Paths struct {
	Dir string

	CmdStaging string // pending-command staging (host writes here)
	CmdPending string // pending command (host renames staging into place)
	CmdClaimed string // claimed command (guest renames pending into place)
	OutStaging string // output staging (guest writes here)
	Out        string // published output
	RcStaging  string // return-code staging
	Rc         string // published return code
	StaStaging string // status staging
	Sta        string // status value
	Log        string // append-only log

	Config    string
	ServeLock string
}

// NewPaths returns the path set for a mailbox rooted at dir.
func NewPaths(dir string) Paths {
	return Paths{
		Dir:        dir,
		CmdStaging: filepath.Join(dir, FileCmdStaging),
		CmdPending: filepath.Join(dir, FileCmdPending),
		CmdClaimed: filepath.Join(dir, FileCmdClaimed),
		OutStaging: filepath.Join(dir, FileOutStaging),
		Out:        filepath.Join(dir, FileOut),
		RcStaging:  filepath.Join(dir, FileRcStaging),
		Rc:         filepath.Join(dir, FileRc),
		StaStaging: filepath.Join(dir, FileStaStaging),
		Sta:        filepath.Join(dir, FileSta),
		Log:        filepath.Join(dir, FileLog),
		Config:     filepath.Join(dir, FileConfig),
		ServeLock:  filepath.Join(dir, FileServeLock),
	}
}
