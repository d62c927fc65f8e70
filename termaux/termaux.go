// Package termaux defines the metadata concepts every load writes against:
// assemblages, author, path, languages and well known SNOMED CT concepts.
//
// Project metadata concepts have name based UUIDs under Namespace, so they
// are stable across runs and machines.
package termaux

import (
	"strings"

	"github.com/TermGraph/uuid"
)

// Namespace is the root of all TermGraph metadata UUIDs.
var Namespace = uuid.MustFromString("d96cb408-b9ae-473d-a08d-ece06dbcedf9")

type Concept struct {
	Name string
	UUID uuid.UID
}

func newConcept(name string) Concept {
	return Concept{Name: name, UUID: uuid.MustFromAssemblage(Namespace, name)}
}

func (c Concept) String() string { return c.Name }

var (
	// assemblages
	ConceptAssemblage            = newConcept("Concept assemblage")
	SctidAssemblage              = newConcept("SNOMED CT identifier assemblage")
	DefinitionStatusAssemblage   = newConcept("Definition status assemblage")
	EnglishDescriptionAssemblage = newConcept("English description assemblage")
	OtherDescriptionAssemblage   = newConcept("Other language description assemblage")
	StatedAssemblage             = newConcept("Stated relationship assemblage")
	InferredAssemblage           = newConcept("Inferred relationship assemblage")

	// vocabularies
	RxNormCuiAssemblage = newConcept("RxNorm CUI assemblage")
	LoincAssemblage     = newConcept("LOINC identifier assemblage")
	ClinVarAssemblage   = newConcept("ClinVar variant identifier assemblage")
	CvxAssemblage       = newConcept("CVX code assemblage")
	LivdAssemblage      = newConcept("LIVD assemblage")
	VocabularyModule    = newConcept("External vocabulary module")

	// IdentifierNamespace scopes the UUIDs of identifier string semantics
	IdentifierNamespace = newConcept("Identifier semantic namespace")
	// DescriptionNamespace scopes descriptions generated from vocabulary columns
	DescriptionNamespace = newConcept("Vocabulary description namespace")

	UserAuthor      = newConcept("User")
	DevelopmentPath = newConcept("Development path")

	English = newConcept("English language")
)

// SNOMED CT identifiers of metadata concepts referenced by generated content.
const (
	SctRoot                     = "138875005"
	SctFullySpecifiedName       = "900000000000003001"
	SctSynonym                  = "900000000000013009"
	SctDefinition               = "900000000000550004"
	SctNotCaseSensitive         = "900000000000448009"
	SctInitialCharCaseSensitive = "900000000000020002"
	SctCoreModule               = "900000000000207008"
	SctPrimitive                = "900000000000074008"
)

var languages = map[string]Concept{
	"en": English,
}

// Language returns the language concept for an RF2 language code.
func Language(code string) Concept {
	code = strings.ToLower(code)
	if c, ok := languages[code]; ok {
		return c
	}
	return newConcept(code + " language")
}

// DescriptionAssemblage returns the assemblage descriptions in language code are written to.
func DescriptionAssemblage(code string) Concept {
	if strings.EqualFold(code, "en") {
		return EnglishDescriptionAssemblage
	}
	return OtherDescriptionAssemblage
}

// All returns every fixed metadata concept.
func All() []Concept {
	return []Concept{
		ConceptAssemblage, SctidAssemblage, DefinitionStatusAssemblage,
		EnglishDescriptionAssemblage, OtherDescriptionAssemblage,
		StatedAssemblage, InferredAssemblage,
		RxNormCuiAssemblage, LoincAssemblage, ClinVarAssemblage, CvxAssemblage, LivdAssemblage,
		VocabularyModule, IdentifierNamespace, DescriptionNamespace,
		UserAuthor, DevelopmentPath, English,
	}
}
