package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/catalog"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/extraction"
	"github.com/voicelog/product-identity/app/registry"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type extractOutput struct {
	Result             *extraction.Result        `json:"result"`
	NeedsClarification bool                      `json:"needs_clarification"`
	Registry           *registry.FuzzyMatch      `json:"registry,omitempty"`
	Match              *catalog.Match            `json:"match,omitempty"`
	Event              *models.VoiceEvent        `json:"event,omitempty"`
	RegistryEntry      *models.UserRegistryEntry `json:"registry_entry,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <user-id> <text>",
	Short: "Extract an event from text and resolve its product",
	Long: `Send text (and optionally an image or audio URL) to the extraction
service, then resolve the detected product through the user's registry
and the shared catalog. With --log a confident result is stored as an
event and learned into the registry.

Examples:
  voicelog extract 7f3c... "took two magtein capsules"
  voicelog extract 7f3c... "scanned my protein bar" --image https://...
  voicelog extract 7f3c... "had my vitamin d" --log`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageURL, _ := cmd.Flags().GetString("image")
		audioURL, _ := cmd.Flags().GetString("audio")
		logEvent, _ := cmd.Flags().GetBool("log")
		userID, text := args[0], args[1]

		oracle := extraction.NewHTTPOracle(cfg.Extraction)
		result, err := oracle.Extract(cmd.Context(), extraction.Input{Text: text, ImageURL: imageURL, AudioURL: audioURL})
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}

		out := extractOutput{
			Result:             result,
			NeedsClarification: result.NeedsClarification(cfg.Extraction.MinConfidence),
		}
		if !slices.Contains(models.ConsumableEventTypes, result.EventType) {
			return printJSON(cmd, out)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		registryMatcher := registry.NewMatcher(models.NewRegistryRepository(db), nil, cfg.Registry)
		catalogMatcher := catalog.NewMatcher(models.NewCatalogRepository(db), cfg)

		query := extraction.ToDetectedProduct(result)
		out.Registry = registryMatcher.CheckFuzzy(cmd.Context(), text, userID)
		out.Match = catalogMatcher.FindCatalogMatch(cmd.Context(), query)

		if !logEvent || out.NeedsClarification {
			return printJSON(cmd, out)
		}

		event := &models.VoiceEvent{
			UserID:    userID,
			EventType: result.EventType,
			EventData: datatypes.JSONMap(result.EventData),
			EventTime: time.Now(),
		}
		if out.Match != nil && out.Match.Product != nil {
			event.ProductCatalogID = &out.Match.Product.ID
		}
		if err := models.NewEventsRepository(db).CreateEvent(cmd.Context(), event); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		out.Event = event

		entry, err := registryMatcher.Record(cmd.Context(), userID, registry.RecordInput{
			Transcription:    text,
			EventType:        result.EventType,
			ProductName:      query.ProductName,
			Brand:            query.Brand,
			ProductCatalogID: event.ProductCatalogID,
		})
		if err != nil {
			common.LogWarn("registry record skipped", zap.String("user_id", userID), zap.Error(err))
		}
		out.RegistryEntry = entry

		return printJSON(cmd, out)
	},
}

func init() {
	extractCmd.Flags().String("image", "", "Image URL to send with the text")
	extractCmd.Flags().String("audio", "", "Audio URL to send with the text")
	extractCmd.Flags().Bool("log", false, "Store the event and learn it into the registry")
	rootCmd.AddCommand(extractCmd)
}
