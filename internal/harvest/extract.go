package harvest

import (
	"strings"

	"go.uber.org/zap"
)

// Meta-data keys populated on extracted records.
const (
	metaUnitCode    = "unit_code"
	metaDataSource  = "data_source"
	metaDescription = "description"
	metaLabelTexts  = "label_texts"
)

// descriptionLabels are the note labels folded into the description field.
var descriptionLabels = map[string]bool{
	"Description": true,
	"Summary":     true,
	"Caption":     true,
}

const labelTextLabel = "Label Text"

// Extractor turns raw rows into normalized image records.
type Extractor struct {
	roles  map[string]int
	logger *zap.Logger
}

// NewExtractor builds an Extractor with the default creator role ranks.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		roles:  DefaultCreatorRoles,
		logger: logger,
	}
}

// Extract emits one record per CC0 image media entry on the row; rows
// without qualifying media yield nothing. Landing URL, title, creator,
// meta-data and tags are shared by every record from the same row.
func (e *Extractor) Extract(row Row) []ImageRecord {
	dnr := row.Content.DescriptiveNonRepeating
	indexed := row.Content.IndexedStructured
	free := row.Content.Freetext

	landingURL := string(dnr.RecordLink)
	if landingURL == "" {
		landingURL = string(dnr.GUID)
	}

	creator, ok := resolveCreator(e.roles, indexed, free)
	if !ok {
		e.logger.Debug("no creator found", zap.String("landing_url", landingURL))
	}
	metaData := extractMetaData(dnr, free)
	tags := extractTags(indexed)

	var records []ImageRecord
	for _, media := range decodeMediaEntries(dnr.OnlineMedia.Media) {
		if media.Type != "Images" || media.Usage.Access != "CC0" {
			continue
		}
		records = append(records, ImageRecord{
			ForeignLandingURL: landingURL,
			ImageURL:          string(media.Content),
			ThumbnailURL:      string(media.Thumbnail),
			LicenseURL:        ZeroLicenseURL,
			ForeignID:         string(media.IDSID),
			Title:             string(row.Title),
			Creator:           creator,
			MetaData:          metaData,
			Tags:              tags,
		})
	}
	return records
}

// extractMetaData copies unit code and data source when present and folds
// note contents into description and label_texts. Contents are joined with
// a single space and no leading separator; a key is set only when its
// joined string is non-empty.
func extractMetaData(dnr descriptiveNonRepeating, free freetext) map[string]string {
	metaData := make(map[string]string)
	if dnr.UnitCode != "" {
		metaData[metaUnitCode] = string(dnr.UnitCode)
	}
	if dnr.DataSource != "" {
		metaData[metaDataSource] = string(dnr.DataSource)
	}

	var description, labelTexts []string
	for _, note := range decodeNoteEntries(free.Notes) {
		switch {
		case descriptionLabels[string(note.Label)]:
			description = append(description, string(note.Content))
		case string(note.Label) == labelTextLabel:
			labelTexts = append(labelTexts, string(note.Content))
		}
	}
	if joined := strings.Join(description, " "); joined != "" {
		metaData[metaDescription] = joined
	}
	if joined := strings.Join(labelTexts, " "); joined != "" {
		metaData[metaLabelTexts] = joined
	}
	return metaData
}

// extractTags concatenates the date, object_type, topic and place arrays in
// that order. A nil result means tags are absent, which the store must keep
// distinct from an empty list.
func extractTags(indexed indexedStructured) []string {
	total := len(indexed.Date) + len(indexed.ObjectType) + len(indexed.Topic) + len(indexed.Place)
	if total == 0 {
		return nil
	}
	tags := make([]string, 0, total)
	tags = append(tags, indexed.Date...)
	tags = append(tags, indexed.ObjectType...)
	tags = append(tags, indexed.Topic...)
	tags = append(tags, indexed.Place...)
	return tags
}
