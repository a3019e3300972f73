package badger

import (
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// Key Namespace
// =============
//
// Data Type        Prefix  Key Format                      Value Type
// =====================================================================
// Live records     "r:"    r:<datasetUUID>/<component>     StoredFileInfo (JSON)
// Trash ledger     "t:"    t:<datasetUUID>/<component>     StoredFileInfo (JSON)
//
// Components sort after the "/" separator, so a prefix scan over
// "r:<datasetUUID>/" returns one dataset's records in component order.
const (
	prefixRecord = "r:"
	prefixTrash  = "t:"
)

func keyRecord(info datastore.StoredFileInfo) []byte {
	return []byte(prefixRecord + info.Key())
}

func keyTrash(info datastore.StoredFileInfo) []byte {
	return []byte(prefixTrash + info.Key())
}

func keyDatasetPrefix(id catalog.DatasetID) []byte {
	return []byte(prefixRecord + id.String() + "/")
}
