package utils

import "fmt"

// DynBuffer is an append-only, resettable message buffer: the payload type
// posted through a MailBox between rank goroutines.
type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](capacity int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, capacity)}
}

func (b *DynBuffer[T]) Add(v T)     { b.cells = append(b.cells, v) }
func (b *DynBuffer[T]) Cells() []T  { return b.cells }
func (b *DynBuffer[T]) Reset()      { b.cells = b.cells[:0] }
func (b *DynBuffer[T]) Len() int    { return len(b.cells) }

type MailBox[T any] struct {
	NP           int
	MessageChans []chan *DynBuffer[T]    // One for each thread
	PostMsgQs    []map[int]*DynBuffer[T] // One for each thread,
	// key is target thread
	ReceiveMsgQs []*DynBuffer[T] // One for each thread
	MailFlag     []bool          // MyThread receiver has messages in outbox
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan *DynBuffer[T], NP),
		PostMsgQs:    make([]map[int]*DynBuffer[T], NP),
		ReceiveMsgQs: make([]*DynBuffer[T], NP),
		MailFlag:     make([]bool, NP),
	}
	for n := 0; n < NP; n++ {
		mb.MessageChans[n] = make(chan *DynBuffer[T], NP) // Worst case is all-to-all
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.ReceiveMsgQs[n] = NewDynBuffer[T](0)
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(myThread, targetThread int, msg T) {
	var (
		exists bool
		tgt    *DynBuffer[T]
	)
	if tgt, exists = mb.PostMsgQs[myThread][targetThread]; !exists {
		mb.PostMsgQs[myThread][targetThread] = NewDynBuffer[T](0)
	}
	tgt = mb.PostMsgQs[myThread][targetThread]
	tgt.Add(msg)
	if !mb.MailFlag[myThread] {
		mb.MailFlag[myThread] = true
	}
}

func (mb *MailBox[T]) PostMessageToAll(myThread int, msg T) {
	for k := 0; k < mb.NP; k++ {
		if k != myThread {
			mb.PostMessage(myThread, k, msg)
		}
	}
}
func (mb *MailBox[T]) DeliverMyMessages(myThread int) {
	if mb.MailFlag[myThread] {
		// fmt.Printf("Here in mailbox after MailFlag\n")
		for targetThread, msgBuffer := range mb.PostMsgQs[myThread] {
			if targetThread < 0 || targetThread > mb.NP-1 {
				panic(fmt.Sprintf("Target thread %d out of bounds", targetThread))
			}
			// fmt.Printf("Target thread, #msgs: %d, %d\n", targetThread,
			// 	len(msgBuffer.Cells()))
			// fmt.Printf("Message[%d]: %v\n", i, msg)
			mb.MessageChans[targetThread] <- msgBuffer
		}
		mb.MailFlag[myThread] = false
	}
}

func (mb *MailBox[T]) ReceiveMyMessages(myThread int) {
	for {
		select {
		case msgBuffer := <-mb.MessageChans[myThread]:
			// fmt.Println("Length of msgBuffer = ", len(msgBuffer.Cells()))
			for _, msg := range msgBuffer.Cells() {
				mb.ReceiveMsgQs[myThread].Add(msg)
			}
			msgBuffer.Reset() // Reset the originating buffer
		default:
			return
		}
	}
}
func (mb *MailBox[T]) ClearMyMessages(myThread int) {
	mb.ReceiveMsgQs[myThread].Reset()
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucket(kDim int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(kDim)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(kDim int) (tryCount, bucketNum, min, max int) {
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*kDim) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= kDim && pm.Partitions[bucketNum][1] > kDim) {
		if pm.Partitions[bucketNum][0] > kDim {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	/*
		if tryCount != 0 {
			fmt.Printf("bn, kDim, maxIndex, ParallelDegree, tryCount = %d, %d, %d, %d, %d\n",
				bucketNum, kDim, pm.MaxIndex, pm.ParallelDegree, tryCount)
		}
	*/
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetLocalK(baseK int) (k, Kmax, bn int) {
	var (
		kmin, kmax int
	)
	bn, kmin, kmax = pm.GetBucket(baseK)
	Kmax = kmax - kmin
	k = baseK - kmin
	return
}

func (pm *PartitionMap) GetGlobalK(kLocal, bn int) (kGlobal int) {
	if bn == -1 {
		kGlobal = kLocal
		return
	}
	var (
		kMin = pm.Partitions[bn][0]
	)
	kGlobal = kMin + kLocal
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// GetNeighborBuckets returns the bucket numbers owning the partitions
// immediately below and above bn along the decomposed axis, or -1 if bn is
// at the low/high end. This is the slab-decomposition analogue of an
// element-to-element table: mesh.RankTopology uses it to address the
// MailBox when exchanging ghost planes with ±k neighbor ranks.
func (pm *PartitionMap) GetNeighborBuckets(bn int) (lo, hi int) {
	lo, hi = -1, -1
	if bn > 0 {
		lo = bn - 1
	}
	if bn < pm.ParallelDegree-1 {
		hi = bn + 1
	}
	return
}
