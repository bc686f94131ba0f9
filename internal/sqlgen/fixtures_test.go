package sqlgen

import (
	"cubesql/internal/domain"
)

func salesTable() domain.TableSql {
	return domain.TableSql{Name: "sales", PrimaryKey: "product_id"}
}

func dateDrill() domain.DrilldownSql {
	return domain.DrilldownSql{
		ForeignKey: "date_id",
		PrimaryKey: "date_id",
		Source:     domain.Table{Name: "sales"},
		LevelColumns: []domain.LevelColumn{
			{KeyColumn: "year"},
			{KeyColumn: "month"},
			{KeyColumn: "day"},
		},
	}
}

func productDrill() domain.DrilldownSql {
	return domain.DrilldownSql{
		ForeignKey: "product_id",
		PrimaryKey: "product_id",
		Source:     domain.Table{Name: "dim_products"},
		LevelColumns: []domain.LevelColumn{
			{KeyColumn: "product_group_id", NameColumn: "product_group_label"},
			{KeyColumn: "product_id_raw", NameColumn: "product_label"},
		},
	}
}

func geoDrill() domain.DrilldownSql {
	return domain.DrilldownSql{
		ForeignKey: "geo_id",
		PrimaryKey: "id",
		Source:     domain.Table{Name: "dim_geo"},
		LevelColumns: []domain.LevelColumn{
			{KeyColumn: "country"},
		},
	}
}

func productGroupCut(members ...string) domain.CutSql {
	return domain.CutSql{
		ForeignKey: "product_id",
		PrimaryKey: "product_id",
		Source:     domain.Table{Name: "dim_products"},
		Column:     "product_group_id",
		Members:    members,
		MemberType: domain.MemberNonText,
	}
}

func quantity() domain.MeasureSql {
	return domain.MeasureSql{Aggregator: domain.AggSum, Column: "quantity"}
}

const productDimSQL = "SELECT product_group_id, product_group_label, product_id_raw, product_label, product_id AS product_id FROM dim_products"
