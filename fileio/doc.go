// Package fileio reads and writes asset files, compressed or not.
//
// Files ending in .zst are zstd streams and files ending in .lz4 are LZ4
// frames; both are also recognized by their magic number. Decompression
// is transparent to callers:
//
//	data, err := fileio.ReadWholeFile("assets/level.obj.zst")
//	ext := fileio.Ext("assets/level.obj.zst") // ".obj"
package fileio
