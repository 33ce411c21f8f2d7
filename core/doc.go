// Package core implements a Bitcask log-structured key-value store.
//
// Every write is appended to the active datafile and indexed in memory by
// the KeyDir, so a read costs one positioned read. Merge compacts old
// datafiles and writes hint files that make the next Open fast.
//
// Example:
//
//	bk, err := core.OpenWithOptions("./data", core.WithReadWrite())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bk.Close()
//
//	err = bk.Put([]byte("foo"), []byte("bar"))
//	val, ok, err := bk.Get([]byte("foo"))
package core
