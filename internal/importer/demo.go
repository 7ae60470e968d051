package importer

// DemoCSV is the built-in sample statement used for instant demos.
const DemoCSV = `date,description,amount
2025-09-25,Salary September,80000
2025-09-26,Amazon Shopping,-1499
2025-09-27,Uber Ride,-220
2025-09-30,Electricity Bill,-1450
2025-10-01,UPI Transfer,-600
2025-10-02,Swiggy,-350
2025-10-05,IRCTC,-980
2025-10-07,Salary October,80000
2025-10-09,Netflix,-499
2025-10-10,DMart,-1200
2025-10-12,Ola Ride,-260
2025-10-14,Mobile Recharge,-399
`
