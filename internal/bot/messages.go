package bot

import (
	"fmt"
	"maps"
	"slices"
)

// fallbackLanguage is used for keys missing from a chat's language.
const fallbackLanguage = "en"

var catalog = map[string]map[string]string{
	"en": {
		"help": "Commands:\n" +
			"/play <url> /vplay <url> - stream audio or video\n" +
			"/cplay /cvplay /cstop - the same in the linked channel\n" +
			"/stop - end the stream\n" +
			"/lang /playmode /playtype /authmode /channelplay /quality - chat settings\n" +
			"/assistant [change] - show or change the assistant\n" +
			"/save /get /notes /clear /clearall - notes\n" +
			"/filter /filters /stopfilter - filters\n" +
			"/auth /unauth /authusers - users who may control streams\n" +
			"/playlist /addplaylist /delplaylist /playplaylist - your playlist\n" +
			"/sudolist - list sudoers",
		"anonymous_admin":   "You are an anonymous admin. Revert to your user account to use this command.",
		"admin_only":        "Only admins with the manage video chats right can do this.",
		"sudo_only":         "Only sudoers can do this.",
		"owner_only":        "Only the bot owner can do this.",
		"member_error":      "Could not check your rights: %v",
		"usage":             "Usage: %s",
		"play_admins_only":  "Only admins can play in this chat.",
		"channel_not_set":   "Set a channel first with /channelplay <channel-id>.",
		"streaming":         "Streaming %s with assistant %d.",
		"kind_audio":        "audio",
		"kind_video":        "video",
		"video_limit":       "The video stream limit (%d) is reached. Try audio or wait for a slot.",
		"no_active_call":    "There is no active video chat. Start one first.",
		"no_assistant":      "No assistant is online right now.",
		"play_failed":       "Could not start the stream: %v",
		"not_streaming":     "Nothing is streaming.",
		"stopped":           "Stream ended.",
		"stop_failed":       "Stream ended with an error: %v",
		"user_not_found":    "User not found. Reply to a message or give an id or @username.",
		"sudo_added":        "%d is now a sudoer.",
		"sudo_exists":       "%d is already a sudoer.",
		"sudo_removed":      "%d is no longer a sudoer.",
		"sudo_missing":      "%d is not a sudoer.",
		"owner_protected":   "Owners cannot be removed.",
		"sudo_protected":    "Sudoers cannot be banned.",
		"sudo_list":         "Owners: %s\nSudoers: %s",
		"lang_set":          "Language set to %s.",
		"lang_unknown":      "Unknown language. Available: %s",
		"setting_set":       "%s set to %s.",
		"invalid_value":     "%q is not a valid %s.",
		"channel_cleared":   "Channel play disabled.",
		"vlimit_show":       "Video stream limit: %d.",
		"maintenance_on":    "Maintenance mode enabled.",
		"maintenance_off":   "Maintenance mode disabled.",
		"assistant_show":    "Assistant %d (%s) serves this chat.",
		"assistant_changed": "Assistant changed to %d (%s).",
		"list_added":        "%d added to %s.",
		"list_exists":       "%d is already in %s.",
		"list_removed":      "%d removed from %s.",
		"list_missing":      "%d is not in %s.",
		"bad_chat_id":       "Give a group or channel id, e.g. -1001234567890.",
		"stats":             "Served chats: %d\nServed users: %d\nActive: %d (video %d, limit %d)\nSudoers: %d\nNotes: %d in %d chats\nFilters: %d in %d chats\nPlaylist tracks: %d of %d users",
		"store_error":       "Storage is unavailable, try again later.",
		"note_saved":        "Saved %q.",
		"note_missing":      "No entry named %q.",
		"note_deleted":      "Deleted %q.",
		"notes_cleared":     "All notes deleted.",
		"notes_list":        "Saved notes:\n%s",
		"notes_empty":       "No notes in this chat.",
		"filters_list":      "Filters:\n%s",
		"filters_empty":     "No filters in this chat.",
		"filter_saved":      "Filter %q saved.",
		"filter_deleted":    "Filter %q stopped.",
		"entry_invalid":     "Cannot save this: %v",
		"group_only":        "This command only works in groups.",
		"auth_added":        "%s can now control streams here.",
		"auth_exists":       "%s is already authorized.",
		"auth_full":         "This chat already has %d authorized users.",
		"auth_removed":      "%s is no longer authorized.",
		"auth_missing":      "%s is not authorized.",
		"auth_list":         "Authorized users:\n%s",
		"auth_empty":        "No authorized users in this chat.",
		"playlist_added":    "Added %q to your playlist.",
		"playlist_full":     "Your playlist is full (%d tracks).",
		"playlist_list":     "Your playlist:\n%s",
		"playlist_empty":    "Your playlist is empty.",
		"playlist_missing":  "No track named %q in your playlist.",
		"playlist_deleted":  "Removed %q from your playlist.",
	},
	"id": {
		"anonymous_admin":   "Anda adalah admin anonim. Kembali ke akun pengguna untuk memakai perintah ini.",
		"admin_only":        "Hanya admin dengan hak kelola obrolan video yang dapat melakukan ini.",
		"sudo_only":         "Hanya sudoer yang dapat melakukan ini.",
		"owner_only":        "Hanya pemilik bot yang dapat melakukan ini.",
		"usage":             "Penggunaan: %s",
		"play_admins_only":  "Hanya admin yang dapat memutar di obrolan ini.",
		"channel_not_set":   "Atur channel dulu dengan /channelplay <id-channel>.",
		"streaming":         "Memutar %s dengan asisten %d.",
		"video_limit":       "Batas streaming video (%d) tercapai. Coba audio atau tunggu slot kosong.",
		"no_active_call":    "Tidak ada obrolan video aktif. Mulai dulu.",
		"no_assistant":      "Tidak ada asisten yang online.",
		"not_streaming":     "Tidak ada yang sedang diputar.",
		"stopped":           "Streaming dihentikan.",
		"user_not_found":    "Pengguna tidak ditemukan. Balas pesan atau beri id atau @username.",
		"owner_protected":   "Pemilik tidak dapat dihapus.",
		"lang_set":          "Bahasa diatur ke %s.",
		"lang_unknown":      "Bahasa tidak dikenal. Tersedia: %s",
		"setting_set":       "%s diatur ke %s.",
		"maintenance_on":    "Mode pemeliharaan aktif.",
		"maintenance_off":   "Mode pemeliharaan nonaktif.",
		"assistant_show":    "Asisten %d (%s) melayani obrolan ini.",
		"assistant_changed": "Asisten diganti ke %d (%s).",
		"store_error":       "Penyimpanan tidak tersedia, coba lagi nanti.",
		"note_saved":        "%q disimpan.",
		"note_missing":      "Tidak ada entri bernama %q.",
		"notes_empty":       "Tidak ada catatan di obrolan ini.",
		"filters_empty":     "Tidak ada filter di obrolan ini.",
		"group_only":        "Perintah ini hanya untuk grup.",
		"auth_added":        "%s sekarang dapat mengontrol streaming di sini.",
		"auth_removed":      "%s tidak lagi diizinkan.",
		"auth_empty":        "Tidak ada pengguna yang diizinkan di obrolan ini.",
		"playlist_empty":    "Playlist Anda kosong.",
	},
}

// Languages returns the codes the bot can reply in.
func Languages() []string {
	return slices.Sorted(maps.Keys(catalog))
}

func hasLanguage(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// t renders key in lang, falling back to English.
func t(lang, key string, args ...any) string {
	format, ok := catalog[lang][key]
	if !ok {
		format, ok = catalog[fallbackLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
