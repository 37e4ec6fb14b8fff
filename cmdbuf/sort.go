package cmdbuf

import "github.com/gogpu/engine/sortkey"

// insertionRun is the length of the runs sorted by insertion before merging.
const insertionRun = 16

// Sort orders the slots by ascending key. The sort is stable: slots with
// equal keys keep submission order, so identical state dispatches
// deterministically frame to frame.
//
// Sort is a bottom-up merge sort over the parallel key/packet arrays using
// scratch arrays allocated once in New; it does not allocate.
func (b *Buffer) Sort() {
	n := b.count
	if n < 2 {
		return
	}

	for lo := 0; lo < n; lo += insertionRun {
		insertionSort(b.keys, b.packets, lo, min(lo+insertionRun, n))
	}
	if n <= insertionRun {
		return
	}

	srcK, srcP := b.keys, b.packets
	dstK, dstP := b.keyScratch, b.packetScratch
	for width := insertionRun; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			merge(srcK, srcP, dstK, dstP, lo, mid, hi)
		}
		srcK, dstK = dstK, srcK
		srcP, dstP = dstP, srcP
	}

	// The sorted run ended up in the scratch arrays: swap roles.
	if &srcK[0] != &b.keys[0] {
		b.keys, b.keyScratch = b.keyScratch, b.keys
		b.packets, b.packetScratch = b.packetScratch, b.packets
	}
}

func insertionSort(keys []sortkey.Key, packets []Packet, lo, hi int) {
	for i := lo + 1; i < hi; i++ {
		k, p := keys[i], packets[i]
		j := i
		for ; j > lo && keys[j-1] > k; j-- {
			keys[j] = keys[j-1]
			packets[j] = packets[j-1]
		}
		keys[j], packets[j] = k, p
	}
}

// merge merges src[lo:mid] and src[mid:hi] into dst[lo:hi], taking from the
// left run on ties.
func merge(srcK []sortkey.Key, srcP []Packet, dstK []sortkey.Key, dstP []Packet, lo, mid, hi int) {
	i, j := lo, mid
	for k := lo; k < hi; k++ {
		if i < mid && (j >= hi || srcK[i] <= srcK[j]) {
			dstK[k], dstP[k] = srcK[i], srcP[i]
			i++
		} else {
			dstK[k], dstP[k] = srcK[j], srcP[j]
			j++
		}
	}
}
