package render

import "context"

// Row is one JSON object pulled from the query stream. The distinguished
// "component" key, when present, selects the template that renders it.
type Row = map[string]interface{}

// ItemKind distinguishes the three shapes an Item can take, mirroring the
// upstream query executor's row/finished-query/error union.
type ItemKind int

const (
	// ItemRow carries one JSON row to feed into handle_row.
	ItemRow ItemKind = iota
	// ItemFinishedQuery marks a SQL-statement boundary.
	ItemFinishedQuery
	// ItemError carries a query-layer error to render inline.
	ItemError
)

// Item is one element produced by a RowStream in order.
type Item struct {
	Kind ItemKind
	Row  Row
	Err  error
}

// RowStream produces Items in order until exhausted. Next returns
// ok == false with a nil error once the stream is done; a non-nil error
// from Next itself (as opposed to an ItemError-kind Item) is a transport
// failure and should stop iteration.
type RowStream interface {
	Next() (item Item, ok bool, err error)
}

// Drive pulls every Item from stream and feeds it into page, calling
// FinishQuery, Step, and HandleError as appropriate, then closes the page
// with Finish once the stream is exhausted. It stops early, without calling
// Finish, at the first transport-level error returned by the stream itself;
// query-layer errors (ItemError) are absorbed into the page as inline error
// rows and do not stop iteration, matching the post-body error-propagation
// policy.
func Drive(ctx context.Context, page *PageContext, stream RowStream) error {
	for {
		item, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			return page.Finish(ctx)
		}
		switch item.Kind {
		case ItemFinishedQuery:
			page.FinishQuery()
		case ItemError:
			if err := page.HandleError(ctx, item.Err); err != nil {
				return err
			}
		default:
			if err := page.Step(ctx, item.Row); err != nil {
				return err
			}
		}
	}
}
