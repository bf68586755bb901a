package config

const (
	defaultConfigPath           = "~/.config/shelfsort/config.toml"
	defaultLogDir               = "~/.local/share/shelfsort/logs"
	defaultCacheDir             = "~/.cache/shelfsort"
	defaultAuthorsFile          = "~/.local/share/shelfsort/known_authors.txt"
	defaultNoCoverDir           = "_no_cover"
	defaultUnclassifiedDir      = "unclassified"
	defaultMetadataFile         = "metadata.json"
	defaultCoverFile            = "cover.jpg"
	defaultStagingPrefix        = "_shelfsort_staging_"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-2.5-flash"
	defaultLLMReferer           = "https://github.com/shelfsort/shelfsort"
	defaultLLMTitle             = "shelfsort"
	defaultLLMTimeoutSeconds    = 60
	defaultAPICooldown          = 5
	defaultGoogleBooksURL       = "https://www.googleapis.com/books/v1/volumes"
	defaultITunesURL            = "https://itunes.apple.com/search"
	defaultOpenLibraryURL       = "https://openlibrary.org/search.json"
	defaultOpenLibraryCoversURL = "https://covers.openlibrary.org/b/id"
	defaultCatalogCountry       = "US"
	defaultRequestsPerSecond    = 1.0
	defaultCatalogTimeout       = 15
	defaultMinResolution        = 500
	defaultSecondaryMaxResults  = 10
	defaultMarkerFile           = ".tags_written"
	defaultAlbumTitleFormat     = "{series} - {title}"
	defaultTrackTitleFormat     = "Chapter {n:02}"
	defaultInventoryFile        = "inventory.csv"
	defaultInventoryDelimiter   = "|"
	defaultNtfyRequestTimeout   = 10
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
)

// DefaultPrompt is the generative-source prompt. {info_string} is replaced with
// the folder name being identified.
const DefaultPrompt = `You are an expert librarian cataloguing audiobooks. ` +
	`Identify the book described by this folder name: "{info_string}". ` +
	`Answer on a single line using exactly this format and nothing else: ` +
	`Title: <title> / Author: <author> / Genre: <genre> / Series: <series name> / Year: <first publication year> / Synopsis: <two sentence synopsis>. ` +
	`Write Unknown for any field you cannot determine.`

var (
	defaultAudioExtensions = []string{".mp3", ".m4a", ".m4b", ".flac", ".wav"}
	defaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			AuthorsFile: defaultAuthorsFile,
			CacheDir:    defaultCacheDir,
		},
		Library: Library{
			AudioExtensions: append([]string(nil), defaultAudioExtensions...),
			ImageExtensions: append([]string(nil), defaultImageExtensions...),
			NoCoverDir:      defaultNoCoverDir,
			UnclassifiedDir: defaultUnclassifiedDir,
			MetadataFile:    defaultMetadataFile,
			CoverFile:       defaultCoverFile,
		},
		Staging: Staging{
			NormalizeNames: true,
			DirPrefix:      defaultStagingPrefix,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			Prompt:         DefaultPrompt,
			APICooldown:    defaultAPICooldown,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Catalog: Catalog{
			GoogleBooksURL:       defaultGoogleBooksURL,
			ITunesURL:            defaultITunesURL,
			OpenLibraryURL:       defaultOpenLibraryURL,
			OpenLibraryCoversURL: defaultOpenLibraryCoversURL,
			Country:              defaultCatalogCountry,
			RequestsPerSecond:    defaultRequestsPerSecond,
			TimeoutSeconds:       defaultCatalogTimeout,
		},
		Covers: Covers{
			MinResolution:       defaultMinResolution,
			SecondaryMaxResults: defaultSecondaryMaxResults,
		},
		Tagging: Tagging{
			MarkerFile:       defaultMarkerFile,
			AlbumTitleFormat: defaultAlbumTitleFormat,
			TrackTitleFormat: defaultTrackTitleFormat,
		},
		Inventory: Inventory{
			FileName:  defaultInventoryFile,
			Delimiter: defaultInventoryDelimiter,
		},
		Cache: Cache{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
