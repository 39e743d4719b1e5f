package ir

// Catalog is a compiled authoring bundle: everything the engine references
// but never owns. Slices keep declaration order.
type Catalog struct {
	QuestionBanks   []QuestionBank          `json:"question_banks"`
	Modules         []Module                `json:"modules"`
	ConfigQuestions []ConfigurationQuestion `json:"config_questions"`
	Products        []Product               `json:"products"`
	Templates       []ProductTemplate       `json:"templates"`
	Rules           []DependencyRule        `json:"rules"`
	Projects        []ProjectFixture        `json:"projects"`
}

// ProjectFixture is a project declared alongside the catalog, together with
// its initial answer selections. Used for seeding and scenario tests.
type ProjectFixture struct {
	Project    Project                  `json:"project"`
	Selections []ProjectAnswerSelection `json:"selections"`
}
