package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	ibdrescue "github.com/dbrescue/go-ibdrescue"
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// schemaFromEmbeddedSDI builds a table definition from the file's own
// SDI pages.
func schemaFromEmbeddedSDI(reader *ibdrescue.PageReader, log *logrus.Logger) (*schema.TableDef, error) {
	docs, err := extractSDIDocs(reader, log)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		obj, err := schema.ParseSDIExport(doc)
		if err != nil {
			continue
		}
		return schema.NewTableDefFromSDI(obj)
	}
	return nil, fmt.Errorf("no usable table document: %w", format.ErrSchemaMismatch)
}

// adoptIndexID scans for the selected index's pages when the schema
// carries no index identifiers: the first root-looking index page
// donates its id.
func adoptIndexID(reader *ibdrescue.PageReader, table *schema.TableDef) error {
	count := reader.PageCount()
	for pageNo := uint32(0); pageNo < count; pageNo++ {
		ip, err := reader.ReadPage(pageNo)
		if err != nil || ip.PageType() != format.PageTypeIndex {
			continue
		}
		xp, err := page.ParseIndexPage(ip)
		if err != nil {
			continue
		}
		if !xp.IsRoot() {
			continue
		}
		if _, err := table.AdoptDiscoveredID(xp.Hdr.IndexID); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("no index root page found: %w", format.ErrSchemaMismatch)
}
