package search

import (
	"log"
	"strconv"

	"github.com/meilisearch/meilisearch-go"

	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/pkg/sanitize"
)

const pharmacyIndex = "pharmacies"

// PharmacyDocument is the searchable projection of a pharmacy.
type PharmacyDocument struct {
	ID    uint   `json:"id"`
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type Service interface {
	IndexPharmacies(docs ...PharmacyDocument) error
	DeletePharmacies(ids ...uint) error
	SearchPharmacies(query string, limit int) ([]PharmacyDocument, error)
	Enabled() bool
}

type meiliSearchService struct {
	client meilisearch.ServiceManager
}

func NewMeiliSearchService(client meilisearch.ServiceManager) Service {
	s := &meiliSearchService{client: client}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	searchable := []string{"name", "owner"}
	if _, err := s.client.Index(pharmacyIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update pharmacies searchable attributes: %v", err)
	}

	filterable := []any{"owner"}
	if _, err := s.client.Index(pharmacyIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update pharmacies filterable attributes: %v", err)
	}

	sortable := []string{"name"}
	if _, err := s.client.Index(pharmacyIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update pharmacies sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

func (s *meiliSearchService) Enabled() bool { return true }

func (s *meiliSearchService) IndexPharmacies(docs ...PharmacyDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		docs[i].Name = sanitize.Text(docs[i].Name)
	}
	task, err := s.client.Index(pharmacyIndex).AddDocuments(docs, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed %d pharmacies, task id: %d", len(docs), task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeletePharmacies(ids ...uint) error {
	for _, id := range ids {
		if _, err := s.client.Index(pharmacyIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10)); err != nil {
			return err
		}
	}
	return nil
}

func (s *meiliSearchService) SearchPharmacies(query string, limit int) ([]PharmacyDocument, error) {
	resp, err := s.client.Index(pharmacyIndex).Search(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}

	var docs []PharmacyDocument
	if err := resp.Hits.DecodeInto(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type noopService struct{}

// NewNoopService is used when no search host is configured.
func NewNoopService() Service { return noopService{} }

func (noopService) IndexPharmacies(...PharmacyDocument) error { return nil }
func (noopService) DeletePharmacies(...uint) error            { return nil }
func (noopService) Enabled() bool                             { return false }

func (noopService) SearchPharmacies(string, int) ([]PharmacyDocument, error) {
	return nil, nil
}

func strPtr(s string) *string {
	return &s
}

// PharmacyDoc projects p for indexing. owner is the owning user's username,
// empty for an orphaned pharmacy.
func PharmacyDoc(p *entity.Pharmacy, owner string) PharmacyDocument {
	return PharmacyDocument{
		ID:    p.ID,
		UUID:  p.UUID.String(),
		Name:  p.Name,
		Owner: owner,
	}
}
