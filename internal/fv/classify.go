package fv

import "strings"

// OtherLabel is the type label for extensions missing from the table.
const OtherLabel = "Other"

// typeLabels maps a normalized extension to a human-readable type label.
var typeLabels = map[string]string{
	".pdf":  "PDF",
	".doc":  "Word Document",
	".docx": "Word Document",
	".xls":  "Excel Spreadsheet",
	".xlsx": "Excel Spreadsheet",
	".ppt":  "PowerPoint Presentation",
	".pptx": "PowerPoint Presentation",
	".txt":  "Text",
	".jpg":  "Image",
	".jpeg": "Image",
	".png":  "Image",
	".gif":  "Image",
	".bmp":  "Image",
	".mp4":  "Video",
	".avi":  "Video",
	".mkv":  "Video",
	".mp3":  "Audio",
	".wav":  "Audio",
	".zip":  "Compressed Archive",
	".rar":  "Compressed Archive",
	".7z":   "Compressed Archive",
	".dwg":  "CAD Drawing",
	".dxf":  "CAD Drawing",
}

// Classify returns the type label for an extension. The extension may be
// given with or without its leading dot, in any case. Unknown and empty
// extensions map to OtherLabel.
func Classify(ext string) string {
	if label, ok := typeLabels[normalizeExtToken(ext)]; ok {
		return label
	}
	return OtherLabel
}

// NormalizeExt returns the lowercase extension of a file name including the
// leading dot, or "" when the name has none. A name made only of a leading
// dot and a word (".bashrc") has no extension.
func NormalizeExt(name string) string {
	_, ext := splitExt(name)
	return strings.ToLower(ext)
}

// splitExt splits a basename into stem and extension, ignoring leading dots.
func splitExt(name string) (stem, ext string) {
	trimmed := strings.TrimLeft(name, ".")
	i := strings.LastIndex(trimmed, ".")
	if i <= 0 {
		return name, ""
	}
	cut := len(name) - len(trimmed) + i
	return name[:cut], name[cut:]
}

// normalizeExtToken turns user input such as "PDF", ".Pdf" or " .pdf " into ".pdf".
func normalizeExtToken(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	if !strings.HasPrefix(token, ".") {
		token = "." + token
	}
	return token
}
