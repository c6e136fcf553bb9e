package sqlite

import "context"

type regionsRepo struct {
	q querier
}

func (r *regionsRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT name FROM regions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
