package table

// Attribute and index names of the movies table. Items are generic
// single-table-design rows; the application decides what goes in each key.
const (
	MoviesPartitionKey = "PK"
	MoviesSortKey      = "SK"
	MoviesGSI1         = "GSI1"
	MoviesGSI1PK       = "GSI1PK"
	MoviesGSI1SK       = "GSI1SK"
)

// MoviesTable returns the fixed schema the movies demo provisions:
// PK/SK string keys, a single all-projecting GSI1 over GSI1PK/GSI1SK,
// billed on demand.
func MoviesTable(name string) TableDefinition {
	return TableDefinition{
		Name: name,
		KeyDefinitions: PrimaryKeyDefinition{
			PartitionKey: KeyDef{Name: MoviesPartitionKey, Kind: KeyKindS},
			SortKey:      KeyDef{Name: MoviesSortKey, Kind: KeyKindS},
		},
		GSIs: []GSIDefinition{
			{
				Name: MoviesGSI1,
				KeyDefinitions: PrimaryKeyDefinition{
					PartitionKey: KeyDef{Name: MoviesGSI1PK, Kind: KeyKindS},
					SortKey:      KeyDef{Name: MoviesGSI1SK, Kind: KeyKindS},
				},
				Projection: Projection{Kind: ProjectAll},
			},
		},
		BillingMode: BillingOnDemand,
	}
}
