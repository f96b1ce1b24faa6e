package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/vvka-141/vload/pkg/vload"
)

// DefaultTableCreator creates the target table from typed columns. Columns
// without a type make it fail with vload.ErrInvalidConfig.
var DefaultTableCreator vload.TableCreator = vload.TableCreatorFunc(createFromColumns)

func createFromColumns(ctx context.Context, s vload.Session, table string, columns []vload.Column) error {
	defs := make([]string, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("cannot create table %s: column %q has no type, specify (name, type) pairs or a table creator: %w",
				table, c.Name, vload.ErrInvalidConfig)
		}
		defs[i] = c.Name + " " + c.Type
	}
	return s.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ",")))
}
