package ir

// CodingMode states how many answers of a configuration question may be
// selected at the same time.
type CodingMode string

const (
	CodingSingle CodingMode = "SingleCoded"
	CodingMulti  CodingMode = "MultiCoded"
)

// IsValid reports whether m is a known coding mode.
func (m CodingMode) IsValid() bool {
	switch m {
	case CodingSingle, CodingMulti:
		return true
	}
	return false
}

// Effect is what a fired dependency rule does to its target.
type Effect string

const (
	EffectInclude Effect = "Include"
	EffectExclude Effect = "Exclude"
)

// IsValid reports whether e is a known rule effect.
func (e Effect) IsValid() bool {
	switch e {
	case EffectInclude, EffectExclude:
		return true
	}
	return false
}

// ConfigurationQuestion is a question researchers answer to configure a
// project (e.g. "music genre"). Its answers drive dependency rules.
type ConfigurationQuestion struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	CodingMode CodingMode            `json:"coding_mode"`
	Answers    []ConfigurationAnswer `json:"answers"`
}

// ConfigurationAnswer belongs to exactly one ConfigurationQuestion.
type ConfigurationAnswer struct {
	ID              string `json:"id"`
	OwnerQuestionID string `json:"owner_question_id"`
	Name            string `json:"name"`
}

// Product groups the configuration questions that apply to projects built
// on it (the product-configuration set).
type Product struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	ConfigQuestionIDs []string `json:"config_question_ids"`
}

// ProductTemplate is the reusable baseline questionnaire of a product.
type ProductTemplate struct {
	ID        string                `json:"id"`
	ProductID string                `json:"product_id"`
	Name      string                `json:"name"`
	Lines     []ProductTemplateLine `json:"lines"`
}

// ProductTemplateLine declares default membership of a module or question.
type ProductTemplateLine struct {
	TemplateID       string `json:"template_id"`
	Position         int    `json:"position"`
	Target           Target `json:"target"`
	IncludeByDefault bool   `json:"include_by_default"`
}

// DependencyRule includes or excludes its target when every required answer
// of the source question is selected.
//
// INVARIANT: RequiredAnswerIDs is never empty; SingleCoded sources carry
// exactly one required answer.
type DependencyRule struct {
	ID                string   `json:"id"`
	Seq               int64    `json:"seq"` // declaration order
	SourceQuestionID  string   `json:"source_question_id"`
	Effect            Effect   `json:"effect"`
	Target            Target   `json:"target"`
	RequiredAnswerIDs []string `json:"required_answer_ids"`
}

// Module is an ordered bundle of question banks expanded in place.
type Module struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Active          bool     `json:"active"`
	QuestionBankIDs []string `json:"question_bank_ids"`
}

// QuestionBank is a catalog question a questionnaire line is instantiated from.
type QuestionBank struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	VariableName string `json:"variable_name"`
	Active       bool   `json:"active"`
}

// Project is a study being designed.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProductID  string `json:"product_id"`
	TemplateID string `json:"template_id,omitempty"` // empty = no template assigned
}

// ProjectAnswerSelection records a project's answer to a configuration question.
type ProjectAnswerSelection struct {
	ProjectID  string `json:"project_id"`
	QuestionID string `json:"question_id"`
	AnswerID   string `json:"answer_id"`
	Selected   bool   `json:"selected"`
}

// QuestionnaireLine is a materialized question of a project.
//
// Standard lines reference a QuestionBank; custom lines leave
// QuestionBankID empty and are identified by their VariableName.
type QuestionnaireLine struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	QuestionBankID string `json:"question_bank_id,omitempty"`
	ModuleID       string `json:"module_id,omitempty"`
	SortOrder      int    `json:"sort_order"`
	VariableName   string `json:"variable_name"`
	Text           string `json:"text,omitempty"`
	Active         bool   `json:"active"`
}

// IsCustom reports whether the line was authored by hand rather than
// instantiated from a question bank.
func (l QuestionnaireLine) IsCustom() bool {
	return l.QuestionBankID == ""
}
