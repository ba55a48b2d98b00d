package student

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// Record - одна строка датасета.
type Record struct {
	// RegistrationID - регистрационный номер как непрозрачный текст.
	RegistrationID string `json:"registration_id" validate:"required"`

	// Name - имя студента без пробелов по краям.
	Name string `json:"name" validate:"required"`

	// State - штат (может быть пустым).
	State string `json:"state"`

	// CGPA - средний балл в диапазоне [0, 10].
	CGPA float64 `json:"cgpa" validate:"gte=0,lte=10"`

	// Rank - вычисляемый ранг (0 = ещё не ранжирован).
	Rank int `json:"rank"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewRecord нормализует сырые значения и валидирует запись.
// Ошибки возвращаются как *shared.ValidationError.
func NewRecord(regdNo, name, state string, cgpa float64) (Record, error) {
	id, err := shared.NewRegistrationID(regdNo)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		RegistrationID: id.String(),
		Name:           strings.TrimSpace(name),
		State:          strings.TrimSpace(state),
		CGPA:           cgpa,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate проверяет инварианты записи.
func (r Record) Validate() error {
	if !shared.CGPA(r.CGPA).IsValid() {
		return shared.NewValidationError("Cgpa", shared.CGPA(r.CGPA).String(), "must be within [0, 10]")
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return shared.NewValidationError(columnName(fe.Field()), fmt.Sprint(fe.Value()), describeTag(fe.Tag()))
	}
	return shared.NewValidationError("", "", err.Error())
}

// IsRanked возвращает true, если ранг уже вычислен.
func (r Record) IsRanked() bool {
	return r.Rank > 0
}

// String возвращает строковое представление для логирования.
func (r Record) String() string {
	return fmt.Sprintf("Record{ID: %s, Name: %s, CGPA: %s, Rank: %d}",
		r.RegistrationID, r.Name, shared.CGPA(r.CGPA), r.Rank)
}

// Clone возвращает копию среза записей.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func columnName(field string) string {
	switch field {
	case "RegistrationID":
		return "Regd No."
	case "CGPA":
		return "Cgpa"
	default:
		return field
	}
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "value is empty"
	case "gte", "lte":
		return "must be within [0, 10]"
	default:
		return "failed " + tag
	}
}
