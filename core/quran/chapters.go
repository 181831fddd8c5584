package quran

// builtin holds the chapter table in canonical order. It is used when a corpus
// source ships no manifest of its own.
var builtin = []ChapterMeta{
	{ID: "1", CanonicalName: "الفاتحة", NameVariants: []string{"Al-Fatihah"}, VerseCount: 7},
	{ID: "2", CanonicalName: "البقرة", NameVariants: []string{"Al-Baqarah"}, VerseCount: 286},
	{ID: "3", CanonicalName: "آل عمران", NameVariants: []string{"Ali 'Imran"}, VerseCount: 200},
	{ID: "4", CanonicalName: "النساء", NameVariants: []string{"An-Nisa"}, VerseCount: 176},
	{ID: "5", CanonicalName: "المائدة", NameVariants: []string{"Al-Ma'idah"}, VerseCount: 120},
	{ID: "6", CanonicalName: "الأنعام", NameVariants: []string{"Al-An'am"}, VerseCount: 165},
	{ID: "7", CanonicalName: "الأعراف", NameVariants: []string{"Al-A'raf"}, VerseCount: 206},
	{ID: "8", CanonicalName: "الأنفال", NameVariants: []string{"Al-Anfal"}, VerseCount: 75},
	{ID: "9", CanonicalName: "التوبة", NameVariants: []string{"At-Tawbah"}, VerseCount: 129},
	{ID: "10", CanonicalName: "يونس", NameVariants: []string{"Yunus"}, VerseCount: 109},
	{ID: "11", CanonicalName: "هود", NameVariants: []string{"Hud"}, VerseCount: 123},
	{ID: "12", CanonicalName: "يوسف", NameVariants: []string{"Yusuf"}, VerseCount: 111},
	{ID: "13", CanonicalName: "الرعد", NameVariants: []string{"Ar-Ra'd"}, VerseCount: 43},
	{ID: "14", CanonicalName: "إبراهيم", NameVariants: []string{"Ibrahim"}, VerseCount: 52},
	{ID: "15", CanonicalName: "الحجر", NameVariants: []string{"Al-Hijr"}, VerseCount: 99},
	{ID: "16", CanonicalName: "النحل", NameVariants: []string{"An-Nahl"}, VerseCount: 128},
	{ID: "17", CanonicalName: "الإسراء", NameVariants: []string{"Al-Isra"}, VerseCount: 111},
	{ID: "18", CanonicalName: "الكهف", NameVariants: []string{"Al-Kahf"}, VerseCount: 110},
	{ID: "19", CanonicalName: "مريم", NameVariants: []string{"Maryam"}, VerseCount: 98},
	{ID: "20", CanonicalName: "طه", NameVariants: []string{"Taha"}, VerseCount: 135},
	{ID: "21", CanonicalName: "الأنبياء", NameVariants: []string{"Al-Anbya"}, VerseCount: 112},
	{ID: "22", CanonicalName: "الحج", NameVariants: []string{"Al-Hajj"}, VerseCount: 78},
	{ID: "23", CanonicalName: "المؤمنون", NameVariants: []string{"Al-Mu'minun"}, VerseCount: 118},
	{ID: "24", CanonicalName: "النور", NameVariants: []string{"An-Nur"}, VerseCount: 64},
	{ID: "25", CanonicalName: "الفرقان", NameVariants: []string{"Al-Furqan"}, VerseCount: 77},
	{ID: "26", CanonicalName: "الشعراء", NameVariants: []string{"Ash-Shu'ara"}, VerseCount: 227},
	{ID: "27", CanonicalName: "النمل", NameVariants: []string{"An-Naml"}, VerseCount: 93},
	{ID: "28", CanonicalName: "القصص", NameVariants: []string{"Al-Qasas"}, VerseCount: 88},
	{ID: "29", CanonicalName: "العنكبوت", NameVariants: []string{"Al-'Ankabut"}, VerseCount: 69},
	{ID: "30", CanonicalName: "الروم", NameVariants: []string{"Ar-Rum"}, VerseCount: 60},
	{ID: "31", CanonicalName: "لقمان", NameVariants: []string{"Luqman"}, VerseCount: 34},
	{ID: "32", CanonicalName: "السجدة", NameVariants: []string{"As-Sajdah"}, VerseCount: 30},
	{ID: "33", CanonicalName: "الأحزاب", NameVariants: []string{"Al-Ahzab"}, VerseCount: 73},
	{ID: "34", CanonicalName: "سبأ", NameVariants: []string{"Saba"}, VerseCount: 54},
	{ID: "35", CanonicalName: "فاطر", NameVariants: []string{"Fatir"}, VerseCount: 45},
	{ID: "36", CanonicalName: "يس", NameVariants: []string{"Ya-Sin"}, VerseCount: 83},
	{ID: "37", CanonicalName: "الصافات", NameVariants: []string{"As-Saffat"}, VerseCount: 182},
	{ID: "38", CanonicalName: "ص", NameVariants: []string{"Sad"}, VerseCount: 88},
	{ID: "39", CanonicalName: "الزمر", NameVariants: []string{"Az-Zumar"}, VerseCount: 75},
	{ID: "40", CanonicalName: "غافر", NameVariants: []string{"Ghafir"}, VerseCount: 85},
	{ID: "41", CanonicalName: "فصلت", NameVariants: []string{"Fussilat"}, VerseCount: 54},
	{ID: "42", CanonicalName: "الشورى", NameVariants: []string{"Ash-Shuraa"}, VerseCount: 53},
	{ID: "43", CanonicalName: "الزخرف", NameVariants: []string{"Az-Zukhruf"}, VerseCount: 89},
	{ID: "44", CanonicalName: "الدخان", NameVariants: []string{"Ad-Dukhan"}, VerseCount: 59},
	{ID: "45", CanonicalName: "الجاثية", NameVariants: []string{"Al-Jathiyah"}, VerseCount: 37},
	{ID: "46", CanonicalName: "الأحقاف", NameVariants: []string{"Al-Ahqaf"}, VerseCount: 35},
	{ID: "47", CanonicalName: "محمد", NameVariants: []string{"Muhammad"}, VerseCount: 38},
	{ID: "48", CanonicalName: "الفتح", NameVariants: []string{"Al-Fath"}, VerseCount: 29},
	{ID: "49", CanonicalName: "الحجرات", NameVariants: []string{"Al-Hujurat"}, VerseCount: 18},
	{ID: "50", CanonicalName: "ق", NameVariants: []string{"Qaf"}, VerseCount: 45},
	{ID: "51", CanonicalName: "الذاريات", NameVariants: []string{"Adh-Dhariyat"}, VerseCount: 60},
	{ID: "52", CanonicalName: "الطور", NameVariants: []string{"At-Tur"}, VerseCount: 49},
	{ID: "53", CanonicalName: "النجم", NameVariants: []string{"An-Najm"}, VerseCount: 62},
	{ID: "54", CanonicalName: "القمر", NameVariants: []string{"Al-Qamar"}, VerseCount: 55},
	{ID: "55", CanonicalName: "الرحمن", NameVariants: []string{"Ar-Rahman"}, VerseCount: 78},
	{ID: "56", CanonicalName: "الواقعة", NameVariants: []string{"Al-Waqi'ah"}, VerseCount: 96},
	{ID: "57", CanonicalName: "الحديد", NameVariants: []string{"Al-Hadid"}, VerseCount: 29},
	{ID: "58", CanonicalName: "المجادلة", NameVariants: []string{"Al-Mujadila"}, VerseCount: 22},
	{ID: "59", CanonicalName: "الحشر", NameVariants: []string{"Al-Hashr"}, VerseCount: 24},
	{ID: "60", CanonicalName: "الممتحنة", NameVariants: []string{"Al-Mumtahanah"}, VerseCount: 13},
	{ID: "61", CanonicalName: "الصف", NameVariants: []string{"As-Saf"}, VerseCount: 14},
	{ID: "62", CanonicalName: "الجمعة", NameVariants: []string{"Al-Jumu'ah"}, VerseCount: 11},
	{ID: "63", CanonicalName: "المنافقون", NameVariants: []string{"Al-Munafiqun"}, VerseCount: 11},
	{ID: "64", CanonicalName: "التغابن", NameVariants: []string{"At-Taghabun"}, VerseCount: 18},
	{ID: "65", CanonicalName: "الطلاق", NameVariants: []string{"At-Talaq"}, VerseCount: 12},
	{ID: "66", CanonicalName: "التحريم", NameVariants: []string{"At-Tahrim"}, VerseCount: 12},
	{ID: "67", CanonicalName: "الملك", NameVariants: []string{"Al-Mulk"}, VerseCount: 30},
	{ID: "68", CanonicalName: "القلم", NameVariants: []string{"Al-Qalam"}, VerseCount: 52},
	{ID: "69", CanonicalName: "الحاقة", NameVariants: []string{"Al-Haqqah"}, VerseCount: 52},
	{ID: "70", CanonicalName: "المعارج", NameVariants: []string{"Al-Ma'arij"}, VerseCount: 44},
	{ID: "71", CanonicalName: "نوح", NameVariants: []string{"Nuh"}, VerseCount: 28},
	{ID: "72", CanonicalName: "الجن", NameVariants: []string{"Al-Jinn"}, VerseCount: 28},
	{ID: "73", CanonicalName: "المزمل", NameVariants: []string{"Al-Muzzammil"}, VerseCount: 20},
	{ID: "74", CanonicalName: "المدثر", NameVariants: []string{"Al-Muddaththir"}, VerseCount: 56},
	{ID: "75", CanonicalName: "القيامة", NameVariants: []string{"Al-Qiyamah"}, VerseCount: 40},
	{ID: "76", CanonicalName: "الإنسان", NameVariants: []string{"Al-Insan"}, VerseCount: 31},
	{ID: "77", CanonicalName: "المرسلات", NameVariants: []string{"Al-Mursalat"}, VerseCount: 50},
	{ID: "78", CanonicalName: "النبأ", NameVariants: []string{"An-Naba"}, VerseCount: 40},
	{ID: "79", CanonicalName: "النازعات", NameVariants: []string{"An-Nazi'at"}, VerseCount: 46},
	{ID: "80", CanonicalName: "عبس", NameVariants: []string{"'Abasa"}, VerseCount: 42},
	{ID: "81", CanonicalName: "التكوير", NameVariants: []string{"At-Takwir"}, VerseCount: 29},
	{ID: "82", CanonicalName: "الانفطار", NameVariants: []string{"Al-Infitar"}, VerseCount: 19},
	{ID: "83", CanonicalName: "المطففين", NameVariants: []string{"Al-Mutaffifin"}, VerseCount: 36},
	{ID: "84", CanonicalName: "الانشقاق", NameVariants: []string{"Al-Inshiqaq"}, VerseCount: 25},
	{ID: "85", CanonicalName: "البروج", NameVariants: []string{"Al-Buruj"}, VerseCount: 22},
	{ID: "86", CanonicalName: "الطارق", NameVariants: []string{"At-Tariq"}, VerseCount: 17},
	{ID: "87", CanonicalName: "الأعلى", NameVariants: []string{"Al-A'la"}, VerseCount: 19},
	{ID: "88", CanonicalName: "الغاشية", NameVariants: []string{"Al-Ghashiyah"}, VerseCount: 26},
	{ID: "89", CanonicalName: "الفجر", NameVariants: []string{"Al-Fajr"}, VerseCount: 30},
	{ID: "90", CanonicalName: "البلد", NameVariants: []string{"Al-Balad"}, VerseCount: 20},
	{ID: "91", CanonicalName: "الشمس", NameVariants: []string{"Ash-Shams"}, VerseCount: 15},
	{ID: "92", CanonicalName: "الليل", NameVariants: []string{"Al-Layl"}, VerseCount: 21},
	{ID: "93", CanonicalName: "الضحى", NameVariants: []string{"Ad-Duhaa"}, VerseCount: 11},
	{ID: "94", CanonicalName: "الشرح", NameVariants: []string{"Ash-Sharh"}, VerseCount: 8},
	{ID: "95", CanonicalName: "التين", NameVariants: []string{"At-Tin"}, VerseCount: 8},
	{ID: "96", CanonicalName: "العلق", NameVariants: []string{"Al-'Alaq"}, VerseCount: 19},
	{ID: "97", CanonicalName: "القدر", NameVariants: []string{"Al-Qadr"}, VerseCount: 5},
	{ID: "98", CanonicalName: "البينة", NameVariants: []string{"Al-Bayyinah"}, VerseCount: 8},
	{ID: "99", CanonicalName: "الزلزلة", NameVariants: []string{"Az-Zalzalah"}, VerseCount: 8},
	{ID: "100", CanonicalName: "العاديات", NameVariants: []string{"Al-'Adiyat"}, VerseCount: 11},
	{ID: "101", CanonicalName: "القارعة", NameVariants: []string{"Al-Qari'ah"}, VerseCount: 11},
	{ID: "102", CanonicalName: "التكاثر", NameVariants: []string{"At-Takathur"}, VerseCount: 8},
	{ID: "103", CanonicalName: "العصر", NameVariants: []string{"Al-'Asr"}, VerseCount: 3},
	{ID: "104", CanonicalName: "الهمزة", NameVariants: []string{"Al-Humazah"}, VerseCount: 9},
	{ID: "105", CanonicalName: "الفيل", NameVariants: []string{"Al-Fil"}, VerseCount: 5},
	{ID: "106", CanonicalName: "قريش", NameVariants: []string{"Quraysh"}, VerseCount: 4},
	{ID: "107", CanonicalName: "الماعون", NameVariants: []string{"Al-Ma'un"}, VerseCount: 7},
	{ID: "108", CanonicalName: "الكوثر", NameVariants: []string{"Al-Kawthar"}, VerseCount: 3},
	{ID: "109", CanonicalName: "الكافرون", NameVariants: []string{"Al-Kafirun"}, VerseCount: 6},
	{ID: "110", CanonicalName: "النصر", NameVariants: []string{"An-Nasr"}, VerseCount: 3},
	{ID: "111", CanonicalName: "المسد", NameVariants: []string{"Al-Masad"}, VerseCount: 5},
	{ID: "112", CanonicalName: "الإخلاص", NameVariants: []string{"Al-Ikhlas"}, VerseCount: 4},
	{ID: "113", CanonicalName: "الفلق", NameVariants: []string{"Al-Falaq"}, VerseCount: 5},
	{ID: "114", CanonicalName: "الناس", NameVariants: []string{"An-Nas"}, VerseCount: 6},
}

// Builtin returns a copy of the built-in chapter table in canonical order.
func Builtin() []ChapterMeta {
	table := make([]ChapterMeta, len(builtin))
	for i, m := range builtin {
		m.NameVariants = append([]string(nil), m.NameVariants...)
		table[i] = m
	}
	return table
}
