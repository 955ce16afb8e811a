package chain

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// SampleBlocks returns the last block of every step-sized range in
// [from, to], so the final sample is always to.
func SampleBlocks(from, to, step uint64) ([]uint64, error) {
	ranges, err := SplitRange(from, to, step)
	if err != nil {
		return nil, err
	}
	blocks := make([]uint64, 0, len(ranges))
	for _, r := range ranges {
		blocks = append(blocks, r.To)
	}
	return blocks, nil
}
