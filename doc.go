// Package bgzf reads and writes BGZF, the blocked gzip format used by BAM, tabix and bgzip.
//
// A BGZF stream is a series of gzip members of at most 64 KiB each.  Every member
// stores its own size in a `BC` extra subfield, so blocks can be located without
// decompressing them, and the stream ends with a fixed empty member.  Any gzip
// reader can decompress the result.
package bgzf
