package pages

// PopulateMode selects how an MmapSource forces the kernel to back a fresh mapping with
// physical pages on the bound node
type PopulateMode uint32

const (
	// PopulateLock faults the mapping in with mlock and keeps it locked, so the pages cannot be
	// reclaimed or swapped while the balloon holds them. Bounded by RLIMIT_MEMLOCK unless the
	// process has CAP_IPC_LOCK.
	PopulateLock PopulateMode = iota
	// PopulateAdvise faults the mapping in with madvise(MADV_POPULATE_WRITE). The pages stay
	// reclaimable. Requires Linux 5.14 or newer.
	PopulateAdvise
)

var populateModeMapping = map[PopulateMode]string{
	PopulateLock:   "lock",
	PopulateAdvise: "advise",
}

func (m PopulateMode) String() string {
	return populateModeMapping[m]
}

// MmapOptions contains optional settings when creating an MmapSource
type MmapOptions struct {
	// Populate selects how mappings are faulted in
	Populate PopulateMode
	// HugePageOrder, when positive, is the smallest block order that is advised with
	// MADV_HUGEPAGE so the kernel may back it with transparent huge pages. On x86-64 with 4KiB
	// pages a 2MiB huge page is order 9.
	HugePageOrder int
}
