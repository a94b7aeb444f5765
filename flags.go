package fatfs

// OpenFlag is the bit field passed to Open, mirroring the POSIX open(2)
// flags this library exposes.
type OpenFlag int

const (
	RDONLY    OpenFlag = 1 << iota // O_RDONLY
	WRONLY                         // O_WRONLY
	APPEND                         // O_APPEND
	CREAT                          // O_CREAT -- recognized, not yet implemented
	DIRECTORY                      // O_DIRECTORY
)

// RDWR requests both read and write permission.
const RDWR = RDONLY | WRONLY

func (f OpenFlag) canRead() bool  { return f&RDONLY != 0 }
func (f OpenFlag) canWrite() bool { return f&WRONLY != 0 }

// Whence values for Lseek, matching SEEK_SET/SEEK_CUR/SEEK_END.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Mode bits reported by Stat/Fstat, matching the low bits of POSIX st_mode.
const (
	ModeDir   = 0x4000 // S_IFDIR
	ModeFile  = 0x8000 // S_IFREG
	ModeRUSR  = 0o400
	ModeWUSR  = 0o200
	ModeXUSR  = 0o100
	ModeRGRP  = 0o040
	ModeWGRP  = 0o020
	ModeXGRP  = 0o010
	ModeROTH  = 0o004
	ModeWOTH  = 0o002
	ModeXOTH  = 0o001
	modeRXAll = ModeRUSR | ModeXUSR | ModeRGRP | ModeXGRP | ModeROTH | ModeXOTH
	modeWAll  = ModeWUSR | ModeWGRP | ModeWOTH
)
