package mapping

import (
	"os"
	"syscall"
)

// statDevIno extracts the raw (dev, inode) pair the kernel tracks for a
// file, as reported by stat(2). The dev field is the undecoded dev_t;
// decoding into major/minor happens in devCandidates.
func statDevIno(fi os.FileInfo) (dev uint64, inode uint64, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return uint64(st.Dev), uint64(st.Ino), true
}
