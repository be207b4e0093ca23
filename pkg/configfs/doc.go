package configfs

// GPFS backend emulation.
//
// BackendGPFS does not talk to GPFS through any cluster-specific API — no
// such driver is reachable from user space here. It approximates the
// unlink-then-link replace sequence GPFS administrators use to avoid
// torn reads on some clustered filesystem configurations, by issuing
// ordinary syscalls: unix.Unlink of the target path, unix.Link of the temp
// file onto it, then unix.Unlink of the temp file; no rename follows.
// This is strictly weaker than a true GPFS atomic
// replace: between the Unlink and the Link there is a window where the
// target name does not exist. Treat BackendGPFS as "best effort on a GPFS
// mount", not as a correctness guarantee equivalent to BackendNone's
// single atomic rename.
